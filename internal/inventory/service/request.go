package service

import (
	"context"
	"strings"

	"github.com/meditrack/meditrack-backend/internal/inventory/events"
	"github.com/meditrack/meditrack-backend/internal/inventory/repository"
	"github.com/meditrack/meditrack-backend/pkg/actor"
	"github.com/meditrack/meditrack-backend/pkg/errors"
	"github.com/meditrack/meditrack-backend/pkg/logger"
)

// RequestService handles inter-branch medicine requests. Fulfillment
// dispenses from the lending branch through the ledger, so every unit that
// leaves a shelf shows up in the same movement history as a walk-in dispense.
type RequestService struct {
	requests  *repository.RequestRepository
	ledger    *LedgerService
	publisher *events.InventoryEventPublisher
	logger    *logger.Logger
}

// NewRequestService creates a new request service
func NewRequestService(
	requests *repository.RequestRepository,
	ledger *LedgerService,
	publisher *events.InventoryEventPublisher,
	log *logger.Logger,
) *RequestService {
	return &RequestService{
		requests:  requests,
		ledger:    ledger,
		publisher: publisher,
		logger:    log,
	}
}

// CreateRequestInput is a new inter-branch request
type CreateRequestInput struct {
	ToBranchID   string
	MedicineName string
	Quantity     int
	Note         string
}

// Create files a pending request from the actor's branch to another branch
func (s *RequestService) Create(ctx context.Context, fromBranchID string, in CreateRequestInput, act *actor.Actor) (*repository.MedicineRequest, error) {
	if in.Quantity <= 0 {
		return nil, errors.BadRequest("quantity must be greater than zero")
	}
	if strings.TrimSpace(in.MedicineName) == "" {
		return nil, errors.BadRequest("medicine name is required")
	}
	if in.ToBranchID == "" {
		return nil, errors.BadRequest("target branch is required")
	}
	if in.ToBranchID == fromBranchID {
		return nil, errors.BadRequest("cannot request stock from your own branch")
	}

	req := &repository.MedicineRequest{
		FromBranchID: fromBranchID,
		ToBranchID:   in.ToBranchID,
		MedicineName: strings.TrimSpace(in.MedicineName),
		Quantity:     in.Quantity,
		RequestedBy:  act.ID,
	}
	if note := strings.TrimSpace(in.Note); note != "" {
		req.Note = &note
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	s.publisher.PublishRequestCreated(ctx, req)

	s.logger.Info().
		Str("request_id", req.ID).
		Str("from_branch", fromBranchID).
		Str("to_branch", in.ToBranchID).
		Msg("medicine request created")

	return req, nil
}

// ListIncoming lists requests addressed to a branch
func (s *RequestService) ListIncoming(ctx context.Context, branchID string) ([]*repository.MedicineRequest, error) {
	return s.requests.ListIncoming(ctx, branchID)
}

// ListOutgoing lists requests a branch has made
func (s *RequestService) ListOutgoing(ctx context.Context, branchID string) ([]*repository.MedicineRequest, error) {
	return s.requests.ListOutgoing(ctx, branchID)
}

// Approve approves a pending request addressed to the given branch
func (s *RequestService) Approve(ctx context.Context, branchID, requestID, note string, act *actor.Actor) (*repository.MedicineRequest, error) {
	return s.decide(ctx, branchID, requestID, repository.RequestStatusApproved, note, act)
}

// Reject rejects a pending request addressed to the given branch
func (s *RequestService) Reject(ctx context.Context, branchID, requestID, note string, act *actor.Actor) (*repository.MedicineRequest, error) {
	return s.decide(ctx, branchID, requestID, repository.RequestStatusRejected, note, act)
}

func (s *RequestService) decide(ctx context.Context, branchID, requestID, status, note string, act *actor.Actor) (*repository.MedicineRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ToBranchID != branchID {
		return nil, errors.Forbidden("request is not addressed to this branch")
	}

	var notePtr *string
	if trimmed := strings.TrimSpace(note); trimmed != "" {
		notePtr = &trimmed
	}

	if err := s.requests.Decide(ctx, requestID, status, act.ID, notePtr); err != nil {
		return nil, err
	}

	req, err = s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	s.publisher.PublishRequestDecided(ctx, req, act.ID)

	s.logger.Info().
		Str("request_id", requestID).
		Str("status", status).
		Msg("medicine request decided")

	return req, nil
}

// Fulfill dispenses an approved request from the lending branch's stock.
// When no batch is named, the soonest-expiring batch that can cover the
// whole quantity is chosen.
func (s *RequestService) Fulfill(ctx context.Context, branchID, requestID, batchID string, act *actor.Actor) (*repository.MedicineRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ToBranchID != branchID {
		return nil, errors.Forbidden("request is not addressed to this branch")
	}
	if req.Status != repository.RequestStatusApproved {
		return nil, errors.Conflict("only approved requests can be fulfilled")
	}

	if batchID == "" {
		batchID, err = s.pickSourceBatch(ctx, branchID, req.MedicineName, req.Quantity)
		if err != nil {
			return nil, err
		}
	}

	// The status-guarded update claims the request. A rival fulfiller loses
	// here, before any stock has moved.
	if err := s.requests.MarkFulfilled(ctx, requestID); err != nil {
		return nil, err
	}

	if _, err := s.ledger.Dispense(ctx, branchID, batchID, req.Quantity, act); err != nil {
		if reopenErr := s.requests.ReopenFulfillment(ctx, requestID); reopenErr != nil {
			s.logger.Error().Err(reopenErr).
				Str("request_id", requestID).
				Msg("failed to reopen request after dispense failure")
		}
		return nil, err
	}
	req.Status = repository.RequestStatusFulfilled

	s.publisher.PublishRequestFulfilled(ctx, req, batchID, act.ID)

	s.logger.Info().
		Str("request_id", requestID).
		Str("batch_id", batchID).
		Msg("medicine request fulfilled")

	return req, nil
}

// pickSourceBatch finds the FEFO batch able to cover the quantity among the
// branch's batches whose name normalizes to the requested medicine's.
func (s *RequestService) pickSourceBatch(ctx context.Context, branchID, medicineName string, quantity int) (string, error) {
	batches, err := s.ledger.BranchInventory(ctx, branchID)
	if err != nil {
		return "", err
	}

	key := NormalizeName(medicineName)
	var candidates []*repository.StockBatch
	for _, b := range batches {
		if NormalizeName(b.MedicineName) == key && b.Quantity >= quantity {
			candidates = append(candidates, b)
		}
	}

	pick := PickFEFO(candidates)
	if pick == nil {
		return "", errors.Conflict("no single batch has enough stock to fulfill this request")
	}
	return pick.ID, nil
}
