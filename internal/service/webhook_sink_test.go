package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidyops/fieldwork/internal/observability/notify"
)

func TestNewWebhookSinkService_Validation(t *testing.T) {
	tests := []struct {
		name    string
		sink    WebhookSink
		wantErr string
	}{
		{
			name: "valid",
			sink: WebhookSink{
				URL:    "https://hooks.example.com/overdue",
				Fields: map[string]string{"count": "flagged_count"},
			},
		},
		{
			name:    "missing url",
			sink:    WebhookSink{},
			wantErr: "sink url is required",
		},
		{
			name:    "non-http scheme",
			sink:    WebhookSink{URL: "ftp://example.com/hook"},
			wantErr: "not a valid http(s) url",
		},
		{
			name: "invalid field expression",
			sink: WebhookSink{
				URL:    "https://hooks.example.com/overdue",
				Fields: map[string]string{"bad": "flagged[["},
			},
			wantErr: "invalid expression",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWebhookSinkService(WebhookSinkServiceOptions{Sink: tt.sink})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWebhookSinkService_Prepare(t *testing.T) {
	svc, err := NewWebhookSinkService(WebhookSinkServiceOptions{
		Sink: WebhookSink{
			URL:     "https://hooks.example.com/overdue",
			Headers: map[string]string{"X-Token": "secret"},
			Fields: map[string]string{
				"ids":   "flagged_job_ids",
				"count": "flagged_count",
				"first": "flagged_job_ids[0]",
			},
		},
	})
	require.NoError(t, err)

	prepared, err := svc.Prepare(map[string]any{
		"flagged_job_ids": []any{"job-1", "job-2"},
		"flagged_count":   2.0,
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, prepared.Method)
	assert.Equal(t, "https://hooks.example.com/overdue", prepared.URL)
	assert.Equal(t, "secret", prepared.Headers["X-Token"])
	assert.Equal(t, http.StatusOK, prepared.OkStatus)

	var body map[string]any
	require.NoError(t, json.Unmarshal(prepared.Body, &body))
	assert.Equal(t, []any{"job-1", "job-2"}, body["ids"])
	assert.Equal(t, 2.0, body["count"])
	assert.Equal(t, "job-1", body["first"])
}

func TestWebhookSinkService_Prepare_Defaults(t *testing.T) {
	svc, err := NewWebhookSinkService(WebhookSinkServiceOptions{
		Sink: WebhookSink{URL: "https://hooks.example.com/overdue"},
	})
	require.NoError(t, err)

	prepared, err := svc.Prepare(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, prepared.Method)
	assert.Equal(t, http.StatusOK, prepared.OkStatus)
	assert.JSONEq(t, "{}", string(prepared.Body))
}

func TestWebhookSinkService_Deliver(t *testing.T) {
	t.Run("success on expected status", func(t *testing.T) {
		var gotBody []byte
		var gotHeader string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotBody, _ = io.ReadAll(r.Body)
			gotHeader = r.Header.Get("X-Token")
			w.WriteHeader(http.StatusAccepted)
		}))
		defer server.Close()

		svc, err := NewWebhookSinkService(WebhookSinkServiceOptions{
			Sink: WebhookSink{URL: server.URL},
		})
		require.NoError(t, err)

		err = svc.Deliver(context.Background(), PreparedWebhookRequest{
			Method:   http.MethodPost,
			URL:      server.URL,
			Headers:  map[string]string{"X-Token": "secret"},
			Body:     []byte(`{"count":1}`),
			OkStatus: http.StatusAccepted,
		})
		require.NoError(t, err)
		assert.JSONEq(t, `{"count":1}`, string(gotBody))
		assert.Equal(t, "secret", gotHeader)
	})

	t.Run("unexpected status fails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		svc, err := NewWebhookSinkService(WebhookSinkServiceOptions{
			Sink: WebhookSink{URL: server.URL},
		})
		require.NoError(t, err)

		err = svc.Deliver(context.Background(), PreparedWebhookRequest{
			Method:   http.MethodPost,
			URL:      server.URL,
			OkStatus: http.StatusOK,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})
}

func TestWebhookSinkService_NotifyOverdueApprovals(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc, err := NewWebhookSinkService(WebhookSinkServiceOptions{
		Sink: WebhookSink{
			URL: server.URL,
			Fields: map[string]string{
				"jobs":     "flagged_job_ids",
				"count":    "flagged_count",
				"swept_at": "swept_at",
			},
		},
	})
	require.NoError(t, err)

	sweptAt := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.NotifyOverdueApprovals(context.Background(), notify.OverdueApprovalsPayload{
		FlaggedJobIDs: []string{"job-1", "job-2"},
		SweptAt:       sweptAt,
	})

	require.NotNil(t, received)
	assert.Equal(t, []any{"job-1", "job-2"}, received["jobs"])
	assert.Equal(t, 2.0, received["count"])
	assert.Equal(t, "2025-03-10T12:00:00Z", received["swept_at"])
}

func TestWebhookSinkService_NotifyOverdueApprovals_DeliveryFailureSwallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc, err := NewWebhookSinkService(WebhookSinkServiceOptions{
		Sink: WebhookSink{URL: server.URL},
	})
	require.NoError(t, err)

	// Must not panic or propagate; the sweep result stands regardless.
	svc.NotifyOverdueApprovals(context.Background(), notify.OverdueApprovalsPayload{
		FlaggedJobIDs: []string{"job-1"},
	})
}
