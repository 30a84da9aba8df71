package consumers

import (
	"context"
	"fmt"

	"github.com/meditrack/meditrack-backend/internal/inventory/repository"
	"github.com/meditrack/meditrack-backend/pkg/logger"
	"github.com/meditrack/meditrack-backend/pkg/messaging"
)

// AlertConsumer turns alert and request-decision events into entries in the
// branch notification feed. The feed is what the notification bell polls, so
// a second browser tab or another workstation sees the same alerts.
type AlertConsumer struct {
	consumer      *messaging.Consumer
	notifications *repository.NotificationRepository
	logger        *logger.Logger
}

// NewAlertConsumer creates a new alert consumer
func NewAlertConsumer(rmq *messaging.RabbitMQ, notifications *repository.NotificationRepository, log *logger.Logger) (*AlertConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "inventory-service.alerts", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeInventoryEvents, "inventory.alert.#"); err != nil {
		return nil, err
	}
	if err := consumer.Subscribe(messaging.ExchangeInventoryEvents, "inventory.request.approved"); err != nil {
		return nil, err
	}

	c := &AlertConsumer{
		consumer:      consumer,
		notifications: notifications,
		logger:        log,
	}

	consumer.RegisterHandler(messaging.EventLowStock, c.handleLowStock)
	consumer.RegisterHandler(messaging.EventBatchExpiring, c.handleBatchExpiring)
	consumer.RegisterHandler(messaging.EventRequestApproved, c.handleRequestApproved)

	return c, nil
}

// Start starts consuming messages
func (c *AlertConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *AlertConsumer) handleLowStock(ctx context.Context, event *messaging.Event) error {
	var data messaging.LowStockEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("medicine_id", data.MedicineID).
		Str("branch_id", data.BranchID).
		Int("total_quantity", data.TotalQuantity).
		Msg("received low stock event")

	return c.notifications.Create(ctx, &repository.Notification{
		BranchID:   data.BranchID,
		Type:       repository.NotificationLowStock,
		Message:    fmt.Sprintf("%s is low on stock (%d remaining, threshold %d)", data.MedicineName, data.TotalQuantity, data.Threshold),
		MedicineID: &data.MedicineID,
	})
}

func (c *AlertConsumer) handleBatchExpiring(ctx context.Context, event *messaging.Event) error {
	var data messaging.BatchExpiringEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("batch_id", data.BatchID).
		Str("branch_id", data.BranchID).
		Int("days_until_expiry", data.DaysUntilExpiry).
		Msg("received batch expiring event")

	message := fmt.Sprintf("%s expires in %d days (%d units)", data.MedicineName, data.DaysUntilExpiry, data.Quantity)
	if data.DaysUntilExpiry < 0 {
		message = fmt.Sprintf("%s expired %d days ago (%d units)", data.MedicineName, -data.DaysUntilExpiry, data.Quantity)
	}

	return c.notifications.Create(ctx, &repository.Notification{
		BranchID:   data.BranchID,
		Type:       repository.NotificationBatchExpiring,
		Message:    message,
		MedicineID: &data.MedicineID,
	})
}

func (c *AlertConsumer) handleRequestApproved(ctx context.Context, event *messaging.Event) error {
	var data messaging.RequestDecidedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("request_id", data.RequestID).
		Msg("received request approved event")

	// The requesting branch gets the notification, not the approver.
	return c.notifications.Create(ctx, &repository.Notification{
		BranchID: data.FromBranchID,
		Type:     repository.NotificationRequestApproved,
		Message:  fmt.Sprintf("Your request for %s was approved", data.MedicineName),
	})
}
