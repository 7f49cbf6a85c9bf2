package models

import "time"

// SyncFlags is the per-store sync bookkeeping state. It is owned by the sync
// engine instance and persisted through the store, never kept as ambient
// process-wide globals, so independent engine instances (and tests) cannot
// contaminate each other.
type SyncFlags struct {
	// LastSyncAt is the time of the most recent drain attempt that completed,
	// even partially.
	LastSyncAt *time.Time `json:"lastSyncAt,omitempty"`

	// SyncBlocked is set when the most recent drain hit a retryable failure
	// (network, timeout, 5xx) and cleared on the next drain that hits none.
	// Enqueue is never blocked by this flag; the UI uses it to warn before
	// accepting actions that depend on timely reconciliation.
	SyncBlocked bool `json:"syncBlocked"`
}

// ReceiptReconciliationEntry maps a provisional receipt number assigned
// offline to the final number the authority assigned on sync. Entries are
// immutable once written and serve user-facing audit only, never control
// flow.
type ReceiptReconciliationEntry struct {
	LocalReceiptNumber string    `json:"localReceiptNumber"`
	ReceiptNumber      string    `json:"receiptNumber"`
	SyncedAt           time.Time `json:"syncedAt"`
}

// QueueStats is the queue usage readout shown in the UI.
type QueueStats struct {
	Count    int   `json:"count"`
	Bytes    int64 `json:"bytes"`
	MaxItems int   `json:"maxItems"`
	MaxBytes int64 `json:"maxBytes"`
}
