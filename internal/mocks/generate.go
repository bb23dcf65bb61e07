// Package mocks provides mock implementations for testing the fieldwork services.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the repository interfaces in internal/core. Hand-written stubs for smaller
// collaborators live alongside the service tests that use them.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
package mocks

// Generate mock for JobRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_repository_mock.go github.com/tidyops/fieldwork/internal/core JobRepository

// Generate mock for CompletionRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=completion_repository_mock.go github.com/tidyops/fieldwork/internal/core CompletionRepository

// Generate mock for WorkOrderRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=work_order_repository_mock.go github.com/tidyops/fieldwork/internal/core WorkOrderRepository

// Generate mock for PayoutRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=payout_repository_mock.go github.com/tidyops/fieldwork/internal/core PayoutRepository

// Generate mock for InvoiceRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=invoice_repository_mock.go github.com/tidyops/fieldwork/internal/core InvoiceRepository

// Generate mock for AuditRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=audit_repository_mock.go github.com/tidyops/fieldwork/internal/core AuditRepository
