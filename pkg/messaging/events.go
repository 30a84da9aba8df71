package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Ledger events
	EventStockIn        = "inventory.stock.in"
	EventStockDispensed = "inventory.stock.dispensed"
	EventBatchArchived  = "inventory.batch.archived"
	EventBatchRestored  = "inventory.batch.restored"
	EventBatchDeleted   = "inventory.batch.deleted"

	// Alert events
	EventLowStock      = "inventory.alert.low_stock"
	EventBatchExpiring = "inventory.alert.batch_expiring"

	// Inter-branch request events
	EventRequestCreated   = "inventory.request.created"
	EventRequestApproved  = "inventory.request.approved"
	EventRequestRejected  = "inventory.request.rejected"
	EventRequestFulfilled = "inventory.request.fulfilled"
)

// Exchange names
const (
	ExchangeInventoryEvents = "inventory.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Ledger events

// StockInEvent is published when a new batch is received
type StockInEvent struct {
	BatchID        string    `json:"batch_id"`
	MedicineID     string    `json:"medicine_id"`
	MedicineName   string    `json:"medicine_name"`
	BranchID       string    `json:"branch_id"`
	Quantity       int       `json:"quantity"`
	DateReceived   time.Time `json:"date_received"`
	ExpirationDate time.Time `json:"expiration_date"`
	CreatedBy      string    `json:"created_by"`
}

// StockDispensedEvent is published when stock is dispensed from a batch
type StockDispensedEvent struct {
	BatchID           string `json:"batch_id"`
	MedicineID        string `json:"medicine_id"`
	BranchID          string `json:"branch_id"`
	QuantityDispensed int    `json:"quantity_dispensed"`
	QuantityRemaining int    `json:"quantity_remaining"`
	DispensedBy       string `json:"dispensed_by"`
}

// BatchArchivedEvent is published when a batch is moved to the archive
type BatchArchivedEvent struct {
	ArchivedID string `json:"archived_id"`
	BatchID    string `json:"batch_id"`
	MedicineID string `json:"medicine_id"`
	BranchID   string `json:"branch_id"`
	Quantity   int    `json:"quantity"`
	Reason     string `json:"reason"`
	ArchivedBy string `json:"archived_by"`
}

// BatchRestoredEvent is published when an archived batch re-enters the ledger
type BatchRestoredEvent struct {
	ArchivedID string `json:"archived_id"`
	BatchID    string `json:"batch_id"`
	MedicineID string `json:"medicine_id"`
	BranchID   string `json:"branch_id"`
	RestoredBy string `json:"restored_by"`
}

// BatchDeletedEvent is published when an archived batch is purged for good
type BatchDeletedEvent struct {
	ArchivedID string `json:"archived_id"`
	BranchID   string `json:"branch_id"`
	DeletedBy  string `json:"deleted_by"`
}

// Alert events

// LowStockEvent is published when a medicine's aggregated quantity falls to
// or below the reorder threshold
type LowStockEvent struct {
	MedicineID    string `json:"medicine_id"`
	MedicineName  string `json:"medicine_name"`
	BranchID      string `json:"branch_id"`
	TotalQuantity int    `json:"total_quantity"`
	Threshold     int    `json:"threshold"`
}

// BatchExpiringEvent is published when a batch is nearing expiry
type BatchExpiringEvent struct {
	BatchID         string    `json:"batch_id"`
	MedicineID      string    `json:"medicine_id"`
	MedicineName    string    `json:"medicine_name"`
	BranchID        string    `json:"branch_id"`
	ExpirationDate  time.Time `json:"expiration_date"`
	DaysUntilExpiry int       `json:"days_until_expiry"`
	Quantity        int       `json:"quantity"`
}

// Inter-branch request events

// RequestCreatedEvent is published when a branch asks another for stock
type RequestCreatedEvent struct {
	RequestID    string `json:"request_id"`
	FromBranchID string `json:"from_branch_id"`
	ToBranchID   string `json:"to_branch_id"`
	MedicineName string `json:"medicine_name"`
	Quantity     int    `json:"quantity"`
	RequestedBy  string `json:"requested_by"`
}

// RequestDecidedEvent is published when a request is approved or rejected
type RequestDecidedEvent struct {
	RequestID    string `json:"request_id"`
	FromBranchID string `json:"from_branch_id"`
	ToBranchID   string `json:"to_branch_id"`
	MedicineName string `json:"medicine_name"`
	Status       string `json:"status"`
	DecidedBy    string `json:"decided_by"`
	Note         string `json:"note,omitempty"`
}

// RequestFulfilledEvent is published when approved stock is dispensed to the
// requesting branch
type RequestFulfilledEvent struct {
	RequestID    string `json:"request_id"`
	FromBranchID string `json:"from_branch_id"`
	ToBranchID   string `json:"to_branch_id"`
	MedicineName string `json:"medicine_name"`
	Quantity     int    `json:"quantity"`
	BatchID      string `json:"batch_id"`
	FulfilledBy  string `json:"fulfilled_by"`
}
