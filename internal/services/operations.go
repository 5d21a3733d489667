// Package services orchestrates the business rules between storage, the
// ledger pairing logic and the message broker.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"hucha/internal/amqp"
	"hucha/internal/core"
	"hucha/internal/ledger"
	"hucha/internal/storage"
)

// EventPublisher publishes operation change notifications. Satisfied by
// *amqp.Client; nil-able so the service runs without a broker.
type EventPublisher interface {
	PublishOperationEvent(ctx context.Context, action string, userID int64, year, month int) error
}

// OperationService handles ledger writes, including the transfer pairing
// rules for savings withdrawals.
type OperationService struct {
	store     storage.OperationStore
	publisher EventPublisher
}

func NewOperationService(store storage.OperationStore, publisher EventPublisher) *OperationService {
	return &OperationService{
		store:     store,
		publisher: publisher,
	}
}

// Create saves an operation. A savings withdrawal is expanded into its two
// legs and written atomically; the destination leg is returned.
func (s *OperationService) Create(ctx context.Context, op core.Operation) (core.Operation, error) {
	if err := op.Validate(); err != nil {
		return core.Operation{}, err
	}

	if !ledger.IsTransfer(op) {
		created, err := s.store.CreateOperation(ctx, op)
		if err != nil {
			return core.Operation{}, fmt.Errorf("create operation: %w", err)
		}
		s.publish(ctx, amqp.ActionCreated, created)
		return created, nil
	}

	src, dst, err := ledger.BuildPair(op)
	if err != nil {
		return core.Operation{}, err
	}

	_, createdDst, err := s.store.CreateTransferPair(ctx, src, dst)
	if err != nil {
		return core.Operation{}, fmt.Errorf("create transfer pair: %w", err)
	}
	s.publish(ctx, amqp.ActionCreated, createdDst)
	return createdDst, nil
}

func (s *OperationService) Get(ctx context.Context, userID, id int64) (core.Operation, error) {
	return s.store.GetOperation(ctx, userID, id)
}

// Update rewrites an operation. When either the stored row or the new values
// involve a transfer, the old pair is removed and fresh rows are inserted in
// one transaction; otherwise it is a plain field update.
func (s *OperationService) Update(ctx context.Context, op core.Operation) (core.Operation, error) {
	if err := op.Validate(); err != nil {
		return core.Operation{}, err
	}

	existing, err := s.store.GetOperation(ctx, op.UserID, op.ID)
	if err != nil {
		return core.Operation{}, err
	}

	if !ledger.IsTransfer(existing) && !ledger.IsTransfer(op) {
		updated, err := s.store.UpdateOperation(ctx, op)
		if err != nil {
			return core.Operation{}, fmt.Errorf("update operation: %w", err)
		}
		s.publish(ctx, amqp.ActionUpdated, existing, updated)
		return updated, nil
	}

	var replacements []core.Operation
	var resultIdx int
	if ledger.IsTransfer(op) {
		src, dst, err := ledger.BuildPair(op)
		if err != nil {
			return core.Operation{}, err
		}
		replacements = []core.Operation{src, dst}
		resultIdx = 1
	} else {
		plain := op
		plain.ID = 0
		plain.TransferGroupID.Valid = false
		replacements = []core.Operation{plain}
		resultIdx = 0
	}

	inserted, err := s.store.ReplaceOperation(ctx, op.UserID, op.ID, replacements)
	if err != nil {
		return core.Operation{}, fmt.Errorf("replace operation: %w", err)
	}
	result := inserted[resultIdx]
	s.publish(ctx, amqp.ActionUpdated, existing, result)
	return result, nil
}

// Delete removes an operation and, for a transfer leg, its complement.
// Returns every removed row.
func (s *OperationService) Delete(ctx context.Context, userID, id int64) ([]core.Operation, error) {
	removed, err := s.store.DeleteOperation(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, amqp.ActionDeleted, removed...)
	return removed, nil
}

func (s *OperationService) List(ctx context.Context, userID int64, year, month int) ([]core.Operation, error) {
	return s.store.ListOperations(ctx, userID, year, month)
}

func (s *OperationService) MonthSummary(ctx context.Context, userID int64, year, month int) (core.MonthSummary, error) {
	return s.store.MonthSummary(ctx, userID, year, month)
}

func (s *OperationService) YearSummary(ctx context.Context, userID int64, year int) (core.YearSummary, error) {
	return s.store.YearSummary(ctx, userID, year)
}

// publish notifies each distinct affected month. A broker failure never
// fails the request, the write has already committed.
func (s *OperationService) publish(ctx context.Context, action string, ops ...core.Operation) {
	if s.publisher == nil {
		return
	}

	type month struct {
		userID      int64
		year, month int
	}
	seen := make(map[month]bool)
	for _, op := range ops {
		m := month{op.UserID, op.Date.Year(), int(op.Date.Month())}
		if seen[m] {
			continue
		}
		seen[m] = true
		if err := s.publisher.PublishOperationEvent(ctx, action, m.userID, m.year, m.month); err != nil {
			slog.ErrorContext(ctx, "Failed to publish operation event",
				"action", action,
				"user_id", m.userID,
				"year", m.year,
				"month", m.month,
				"error", err)
		}
	}
}
