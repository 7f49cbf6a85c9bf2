// Package remote implements the consumed contract of the remote authority:
// device registration/revocation, per-action submission with idempotency
// keys, and conflict resolution. Submission responses are classified into
// outcomes the sync engine can act on without parsing HTTP details.
package remote

import (
	"context"

	"github.com/dpetrovs/stockkeeper/internal/client/models"
)

// Outcome classifies a submission response.
type Outcome string

const (
	// OutcomeApplied: the authority committed the action.
	OutcomeApplied Outcome = "APPLIED"
	// OutcomeAlreadyApplied: a previous submission with the same idempotency
	// key already committed; treat as success without a second effect.
	OutcomeAlreadyApplied Outcome = "ALREADY_APPLIED"
	// OutcomeConflict: business-rule rejection requiring operator decision.
	OutcomeConflict Outcome = "CONFLICT"
	// OutcomeRejected: non-retryable validation rejection.
	OutcomeRejected Outcome = "REJECTED"
)

// SubmitResult is the classified response to one action submission.
// Transport failures, timeouts and 5xx responses are returned as errors
// (common.ErrUnavailable) instead, since they are retryable and must stop
// the drain rather than consume the item.
type SubmitResult struct {
	Outcome Outcome

	// ReceiptNumber is the authority-assigned final identifier, when the
	// committed resource carries one.
	ReceiptNumber string

	// Conflict holds reason and payload for OutcomeConflict.
	Conflict *models.ConflictPayload

	// Message is the display detail for OutcomeRejected.
	Message string
}

// RegisterDeviceRequest is the body of the register-device call.
type RegisterDeviceRequest struct {
	DeviceName string `json:"deviceName"`
	DeviceID   string `json:"deviceId"`
	UserID     string `json:"userId"`
}

// Client is the remote authority API consumed by the offline engine.
type Client interface {
	// RegisterDevice registers this device and returns the authority's record.
	RegisterDevice(ctx context.Context, req RegisterDeviceRequest) (*models.DeviceRecord, error)

	// RevokeDevice revokes the device id with the authority.
	RevokeDevice(ctx context.Context, deviceID string) error

	// Status fetches the authority's offline status report for the device.
	Status(ctx context.Context, deviceID string) (*models.OfflineStatus, error)

	// Submit sends one queued action to its per-type endpoint and classifies
	// the response. A common.ErrDeviceRevoked error means the authority no
	// longer accepts this device id.
	Submit(ctx context.Context, payload models.Payload) (*SubmitResult, error)

	// ResolveConflict reports an operator decision for a conflicted action.
	ResolveConflict(ctx context.Context, actionID string, resolution models.ResolutionOption) error

	// Ping checks authority reachability.
	Ping(ctx context.Context) error
}
