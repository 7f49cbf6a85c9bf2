// Package models defines the queued-action types, device identity records
// and sync bookkeeping structures of the offline engine.
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ActionType classifies a queued mutation.
type ActionType string

const (
	ActionTypeStockAdjustment ActionType = "STOCK_ADJUSTMENT"
	ActionTypeStockCount      ActionType = "STOCK_COUNT"
	ActionTypeSale            ActionType = "SALE"
)

// ActionStatus is the replay state of a queued action.
//
// There is no persisted terminal success state: an action is deleted from
// the queue once the remote authority confirms it. StatusConflict persists
// until an operator resolves it.
type ActionStatus string

const (
	StatusPending  ActionStatus = "PENDING"
	StatusSyncing  ActionStatus = "SYNCING"
	StatusConflict ActionStatus = "CONFLICT"
	StatusFailed   ActionStatus = "FAILED"
)

// Payload is the action-type-tagged envelope submitted to the remote
// authority. Details holds the type-specific body; use Wrap/Unwrap to move
// between the envelope and the typed payload structs.
type Payload struct {
	Type           ActionType      `json:"type"`
	DeviceID       string          `json:"deviceId"`
	IdempotencyKey string          `json:"idempotencyKey"`
	Details        json.RawMessage `json:"details"`
}

// TypedPayload is implemented by every action-specific payload body.
type TypedPayload interface {
	GetType() ActionType
}

// Wrap builds a Payload envelope around the typed body v.
func Wrap[T TypedPayload](deviceID, idempotencyKey string, v T) (Payload, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Payload{}, err
	}
	return Payload{
		Type:           v.GetType(),
		DeviceID:       deviceID,
		IdempotencyKey: idempotencyKey,
		Details:        b,
	}, nil
}

// Unwrap decodes the type-specific body of the envelope.
func (p Payload) Unwrap() (any, error) {
	switch p.Type {
	case ActionTypeStockAdjustment:
		var v StockAdjustment
		return v, json.Unmarshal(p.Details, &v)
	case ActionTypeStockCount:
		var v StockCount
		return v, json.Unmarshal(p.Details, &v)
	case ActionTypeSale:
		var v Sale
		return v, json.Unmarshal(p.Details, &v)
	default:
		return nil, fmt.Errorf("unknown action type %q", p.Type)
	}
}

// StockAdjustment changes the on-hand quantity of a product at a location.
type StockAdjustment struct {
	ProductID  string          `json:"productId"`
	LocationID string          `json:"locationId"`
	Delta      decimal.Decimal `json:"delta"`
	Reason     string          `json:"reason"`
}

func (x StockAdjustment) GetType() ActionType { return ActionTypeStockAdjustment }

// StockCount records a full count of a product at a location.
type StockCount struct {
	ProductID  string          `json:"productId"`
	LocationID string          `json:"locationId"`
	Counted    decimal.Decimal `json:"counted"`
}

func (x StockCount) GetType() ActionType { return ActionTypeStockCount }

// SaleLine is one line of an offline sale.
type SaleLine struct {
	ProductID string          `json:"productId"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Sale records a sale completed while offline. LocalReceiptNumber is the
// provisional receipt identifier assigned at creation time; the authority
// assigns the final one on successful sync.
type Sale struct {
	LocationID         string          `json:"locationId"`
	Lines              []SaleLine      `json:"lines"`
	Total              decimal.Decimal `json:"total"`
	LocalReceiptNumber string          `json:"localReceiptNumber,omitempty"`
}

func (x Sale) GetType() ActionType { return ActionTypeSale }

// QueuedAction is a single pending mutation captured while offline.
//
// Seq is a monotonic sequence number assigned at enqueue time and is the
// authoritative FIFO order key; ProvisionalAt is wall-clock time kept for
// display and audit only. LocalAuditID is a local-only correlation id and
// is never transmitted as a primary key.
type QueuedAction struct {
	ID              string           `json:"id"`
	Seq             int64            `json:"-"`
	Type            ActionType       `json:"type"`
	Payload         Payload          `json:"payload"`
	ProvisionalAt   time.Time        `json:"provisionalAt"`
	LocalAuditID    string           `json:"localAuditId"`
	Status          ActionStatus     `json:"-"`
	ConflictReason  ConflictReason   `json:"conflictReason,omitempty"`
	ConflictPayload *ConflictPayload `json:"conflictPayload,omitempty"`
	ErrorMessage    string           `json:"errorMessage,omitempty"`
}
