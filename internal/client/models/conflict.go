package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// ConflictReason classifies a business-rule rejection returned by the remote
// authority. A conflict requires a human decision and is distinct from a
// transient network failure.
type ConflictReason string

const (
	ConflictApprovalRequired ConflictReason = "APPROVAL_REQUIRED"
	ConflictPriceVariance    ConflictReason = "PRICE_VARIANCE"
	ConflictGeneric          ConflictReason = "CONFLICT"
)

// ConflictPayload is the reason-tagged data the authority attached to a
// conflict response.
type ConflictPayload struct {
	Reason  ConflictReason  `json:"reason"`
	Details json.RawMessage `json:"details,omitempty"`
}

// ApprovalConflict accompanies ConflictApprovalRequired.
type ApprovalConflict struct {
	ApprovalID string `json:"approvalId"`
	Approver   string `json:"approver,omitempty"`
}

// PriceVarianceConflict accompanies ConflictPriceVariance.
type PriceVarianceConflict struct {
	ProductID      string          `json:"productId"`
	SubmittedPrice decimal.Decimal `json:"submittedPrice"`
	CurrentPrice   decimal.Decimal `json:"currentPrice"`
}

// Unwrap decodes the reason-specific conflict details.
func (c ConflictPayload) Unwrap() (any, error) {
	switch c.Reason {
	case ConflictApprovalRequired:
		var v ApprovalConflict
		return v, json.Unmarshal(c.Details, &v)
	case ConflictPriceVariance:
		var v PriceVarianceConflict
		return v, json.Unmarshal(c.Details, &v)
	default:
		var m map[string]any
		if len(c.Details) == 0 {
			return nil, nil
		}
		if err := json.Unmarshal(c.Details, &m); err != nil {
			return nil, err
		}
		return m, nil
	}
}

// ResolutionOption is an operator decision on a conflicted action.
type ResolutionOption string

const (
	ResolutionRetry         ResolutionOption = "RETRY"
	ResolutionDismiss       ResolutionOption = "DISMISS"
	ResolutionOverridePrice ResolutionOption = "OVERRIDE_PRICE"
	ResolutionSyncApproval  ResolutionOption = "SYNC_APPROVAL"
)

// ResolutionOptions returns the operator choices available for a conflict
// reason. The switch is exhaustive over the known reasons; unknown reasons
// fall back to retry/dismiss.
func (r ConflictReason) ResolutionOptions() []ResolutionOption {
	switch r {
	case ConflictApprovalRequired:
		return []ResolutionOption{ResolutionSyncApproval, ResolutionRetry, ResolutionDismiss}
	case ConflictPriceVariance:
		return []ResolutionOption{ResolutionOverridePrice, ResolutionRetry, ResolutionDismiss}
	default:
		return []ResolutionOption{ResolutionRetry, ResolutionDismiss}
	}
}

// Allows reports whether opt is a valid resolution for reason r.
func (r ConflictReason) Allows(opt ResolutionOption) bool {
	for _, o := range r.ResolutionOptions() {
		if o == opt {
			return true
		}
	}
	return false
}
