package events

import (
	"context"

	"github.com/meditrack/meditrack-backend/internal/inventory/repository"
	"github.com/meditrack/meditrack-backend/pkg/logger"
	"github.com/meditrack/meditrack-backend/pkg/messaging"
)

// publisher is what the event publisher needs from the transport; satisfied
// by messaging.Publisher and by the test recorder.
type publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// InventoryEventPublisher publishes the ledger's domain events. All methods
// are nil-safe and best-effort: a publish failure is logged and never fails
// the mutation that triggered it.
type InventoryEventPublisher struct {
	publisher publisher
	logger    *logger.Logger
}

// NewInventoryEventPublisher creates a publisher bound to the inventory
// events exchange
func NewInventoryEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*InventoryEventPublisher, error) {
	p, err := messaging.NewPublisher(rmq, messaging.ExchangeInventoryEvents, "inventory-service", log)
	if err != nil {
		return nil, err
	}

	return &InventoryEventPublisher{
		publisher: p,
		logger:    log,
	}, nil
}

// NewInventoryEventPublisherWith wires a custom transport, used by tests
func NewInventoryEventPublisherWith(p publisher, log *logger.Logger) *InventoryEventPublisher {
	return &InventoryEventPublisher{publisher: p, logger: log}
}

// PublishStockIn publishes a stock-in event for a newly received batch
func (p *InventoryEventPublisher) PublishStockIn(ctx context.Context, batch *repository.StockBatch) {
	if p == nil {
		return
	}

	data := messaging.StockInEvent{
		BatchID:        batch.ID,
		MedicineID:     batch.MedicineID,
		MedicineName:   batch.MedicineName,
		BranchID:       batch.BranchID,
		Quantity:       batch.Quantity,
		DateReceived:   batch.DateReceived,
		ExpirationDate: batch.ExpirationDate,
		CreatedBy:      batch.CreatedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventStockIn, data); err != nil {
		p.logger.Error().Err(err).Str("batch_id", batch.ID).Msg("failed to publish stock in event")
	}
}

// PublishStockDispensed publishes a dispense event
func (p *InventoryEventPublisher) PublishStockDispensed(ctx context.Context, batch *repository.StockBatch, dispensed int, dispensedBy string) {
	if p == nil {
		return
	}

	data := messaging.StockDispensedEvent{
		BatchID:           batch.ID,
		MedicineID:        batch.MedicineID,
		BranchID:          batch.BranchID,
		QuantityDispensed: dispensed,
		QuantityRemaining: batch.Quantity,
		DispensedBy:       dispensedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventStockDispensed, data); err != nil {
		p.logger.Error().Err(err).Str("batch_id", batch.ID).Msg("failed to publish dispense event")
	}
}

// PublishBatchArchived publishes an archive event
func (p *InventoryEventPublisher) PublishBatchArchived(ctx context.Context, archived *repository.ArchivedBatch) {
	if p == nil {
		return
	}

	data := messaging.BatchArchivedEvent{
		ArchivedID: archived.ID,
		BatchID:    archived.BatchID,
		MedicineID: archived.MedicineID,
		BranchID:   archived.BranchID,
		Quantity:   archived.Quantity,
		Reason:     archived.Reason,
		ArchivedBy: archived.ArchivedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventBatchArchived, data); err != nil {
		p.logger.Error().Err(err).Str("batch_id", archived.BatchID).Msg("failed to publish archive event")
	}
}

// PublishBatchRestored publishes a restore event
func (p *InventoryEventPublisher) PublishBatchRestored(ctx context.Context, archivedID string, batch *repository.StockBatch, restoredBy string) {
	if p == nil {
		return
	}

	data := messaging.BatchRestoredEvent{
		ArchivedID: archivedID,
		BatchID:    batch.ID,
		MedicineID: batch.MedicineID,
		BranchID:   batch.BranchID,
		RestoredBy: restoredBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventBatchRestored, data); err != nil {
		p.logger.Error().Err(err).Str("batch_id", batch.ID).Msg("failed to publish restore event")
	}
}

// PublishBatchDeleted publishes a permanent-delete event
func (p *InventoryEventPublisher) PublishBatchDeleted(ctx context.Context, archivedID, branchID, deletedBy string) {
	if p == nil {
		return
	}

	data := messaging.BatchDeletedEvent{
		ArchivedID: archivedID,
		BranchID:   branchID,
		DeletedBy:  deletedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventBatchDeleted, data); err != nil {
		p.logger.Error().Err(err).Str("archived_id", archivedID).Msg("failed to publish delete event")
	}
}

// PublishLowStock publishes a low-stock alert
func (p *InventoryEventPublisher) PublishLowStock(ctx context.Context, branchID, medicineID, medicineName string, total, threshold int) {
	if p == nil {
		return
	}

	data := messaging.LowStockEvent{
		MedicineID:    medicineID,
		MedicineName:  medicineName,
		BranchID:      branchID,
		TotalQuantity: total,
		Threshold:     threshold,
	}

	if err := p.publisher.Publish(ctx, messaging.EventLowStock, data); err != nil {
		p.logger.Error().Err(err).Str("medicine_id", medicineID).Msg("failed to publish low stock event")
	}
}

// PublishBatchExpiring publishes an expiry warning for a batch
func (p *InventoryEventPublisher) PublishBatchExpiring(ctx context.Context, e messaging.BatchExpiringEvent) {
	if p == nil {
		return
	}

	if err := p.publisher.Publish(ctx, messaging.EventBatchExpiring, e); err != nil {
		p.logger.Error().Err(err).Str("batch_id", e.BatchID).Msg("failed to publish expiring event")
	}
}

// PublishRequestCreated publishes an inter-branch request creation
func (p *InventoryEventPublisher) PublishRequestCreated(ctx context.Context, req *repository.MedicineRequest) {
	if p == nil {
		return
	}

	data := messaging.RequestCreatedEvent{
		RequestID:    req.ID,
		FromBranchID: req.FromBranchID,
		ToBranchID:   req.ToBranchID,
		MedicineName: req.MedicineName,
		Quantity:     req.Quantity,
		RequestedBy:  req.RequestedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventRequestCreated, data); err != nil {
		p.logger.Error().Err(err).Str("request_id", req.ID).Msg("failed to publish request created event")
	}
}

// PublishRequestDecided publishes an approval or rejection
func (p *InventoryEventPublisher) PublishRequestDecided(ctx context.Context, req *repository.MedicineRequest, decidedBy string) {
	if p == nil {
		return
	}

	note := ""
	if req.Note != nil {
		note = *req.Note
	}

	data := messaging.RequestDecidedEvent{
		RequestID:    req.ID,
		FromBranchID: req.FromBranchID,
		ToBranchID:   req.ToBranchID,
		MedicineName: req.MedicineName,
		Status:       req.Status,
		DecidedBy:    decidedBy,
		Note:         note,
	}

	eventType := messaging.EventRequestRejected
	if req.Status == repository.RequestStatusApproved {
		eventType = messaging.EventRequestApproved
	}

	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Str("request_id", req.ID).Msg("failed to publish request decision event")
	}
}

// PublishRequestFulfilled publishes a fulfillment
func (p *InventoryEventPublisher) PublishRequestFulfilled(ctx context.Context, req *repository.MedicineRequest, batchID, fulfilledBy string) {
	if p == nil {
		return
	}

	data := messaging.RequestFulfilledEvent{
		RequestID:    req.ID,
		FromBranchID: req.FromBranchID,
		ToBranchID:   req.ToBranchID,
		MedicineName: req.MedicineName,
		Quantity:     req.Quantity,
		BatchID:      batchID,
		FulfilledBy:  fulfilledBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventRequestFulfilled, data); err != nil {
		p.logger.Error().Err(err).Str("request_id", req.ID).Msg("failed to publish request fulfilled event")
	}
}
