package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidyops/fieldwork/internal/core"
	"github.com/tidyops/fieldwork/internal/data"
	"github.com/tidyops/fieldwork/internal/domain/model"
	"github.com/tidyops/fieldwork/internal/mocks"
	"go.uber.org/mock/gomock"
)

func newInvoiceService(t *testing.T, repo core.InvoiceRepository) *InvoiceService {
	t.Helper()
	svc, err := NewInvoiceService(InvoiceServiceOptions{Repo: repo})
	require.NoError(t, err)
	return svc
}

func draftInvoice() *model.Invoice {
	return &model.Invoice{
		ID:          "inv-1",
		ClientID:    "client-1",
		PeriodStart: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:      model.InvoiceDraft,
	}
}

func TestInvoiceService_CreateDraft(t *testing.T) {
	ctx := context.Background()

	t.Run("admin creates draft", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mocks.NewMockInvoiceRepository(ctrl)
		svc := newInvoiceService(t, repo)

		req := &model.CreateInvoiceRequest{
			ClientID:    "client-1",
			PeriodStart: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
			PeriodEnd:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		}
		repo.EXPECT().Create(ctx, req).Return(draftInvoice(), nil)

		inv, err := svc.CreateDraft(ctx, adminActor, req)
		require.NoError(t, err)
		assert.Equal(t, model.InvoiceDraft, inv.Status)
	})

	t.Run("non-admin denied", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		svc := newInvoiceService(t, mocks.NewMockInvoiceRepository(ctrl))

		_, err := svc.CreateDraft(ctx, workerActor, &model.CreateInvoiceRequest{})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestInvoiceService_AttachJob(t *testing.T) {
	ctx := context.Background()

	t.Run("attaches to draft", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mocks.NewMockInvoiceRepository(ctrl)
		svc := newInvoiceService(t, repo)

		repo.EXPECT().AttachJob(ctx, "inv-1", "job-1").Return(nil)

		assert.NoError(t, svc.AttachJob(ctx, adminActor, "inv-1", "job-1"))
	})

	t.Run("locked job list maps to conflict", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mocks.NewMockInvoiceRepository(ctrl)
		svc := newInvoiceService(t, repo)

		repo.EXPECT().AttachJob(ctx, "inv-1", "job-1").Return(data.ErrInvoiceNotDraft)

		err := svc.AttachJob(ctx, adminActor, "inv-1", "job-1")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("invoice missing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mocks.NewMockInvoiceRepository(ctrl)
		svc := newInvoiceService(t, repo)

		repo.EXPECT().AttachJob(ctx, "missing", "job-1").Return(data.ErrInvoiceNotFound)

		err := svc.AttachJob(ctx, adminActor, "missing", "job-1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("non-admin denied", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		svc := newInvoiceService(t, mocks.NewMockInvoiceRepository(ctrl))

		err := svc.AttachJob(ctx, workerActor, "inv-1", "job-1")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestInvoiceService_Send(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := mocks.NewMockInvoiceRepository(ctrl)
	svc := newInvoiceService(t, repo)

	sent := draftInvoice()
	sent.Status = model.InvoiceSent
	repo.EXPECT().Transition(ctx, core.InvoiceTransitionParams{
		InvoiceID: "inv-1",
		From:      model.InvoiceDraft,
		To:        model.InvoiceSent,
		ActorID:   "admin-1",
	}).Return(sent, nil)

	inv, err := svc.Send(ctx, adminActor, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceSent, inv.Status)
}

func TestInvoiceService_MarkPaid(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := mocks.NewMockInvoiceRepository(ctrl)
	svc := newInvoiceService(t, repo)

	paid := draftInvoice()
	paid.Status = model.InvoicePaid
	repo.EXPECT().Transition(ctx, core.InvoiceTransitionParams{
		InvoiceID: "inv-1",
		From:      model.InvoiceSent,
		To:        model.InvoicePaid,
		ActorID:   "admin-1",
	}).Return(paid, nil)

	inv, err := svc.MarkPaid(ctx, adminActor, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, model.InvoicePaid, inv.Status)
}

func TestInvoiceService_Void(t *testing.T) {
	ctx := context.Background()

	t.Run("voids a sent invoice", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mocks.NewMockInvoiceRepository(ctrl)
		svc := newInvoiceService(t, repo)

		current := draftInvoice()
		current.Status = model.InvoiceSent
		repo.EXPECT().GetByID(ctx, "inv-1").Return(current, nil)

		voided := draftInvoice()
		voided.Status = model.InvoiceVoid
		repo.EXPECT().Transition(ctx, core.InvoiceTransitionParams{
			InvoiceID: "inv-1",
			From:      model.InvoiceSent,
			To:        model.InvoiceVoid,
			ActorID:   "admin-1",
		}).Return(voided, nil)

		inv, err := svc.Void(ctx, adminActor, "inv-1")
		require.NoError(t, err)
		assert.Equal(t, model.InvoiceVoid, inv.Status)
	})

	t.Run("paid invoice cannot be voided", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mocks.NewMockInvoiceRepository(ctrl)
		svc := newInvoiceService(t, repo)

		current := draftInvoice()
		current.Status = model.InvoicePaid
		repo.EXPECT().GetByID(ctx, "inv-1").Return(current, nil)

		_, err := svc.Void(ctx, adminActor, "inv-1")
		assert.ErrorIs(t, err, ErrIllegalTransition)
	})
}

func TestInvoiceService_Transition_ConcurrentChange(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := mocks.NewMockInvoiceRepository(ctrl)
	svc := newInvoiceService(t, repo)

	repo.EXPECT().Transition(ctx, gomock.Any()).Return(nil, data.ErrStaleStatus)

	_, err := svc.Send(ctx, adminActor, "inv-1")
	assert.ErrorIs(t, err, ErrConflict)
}
