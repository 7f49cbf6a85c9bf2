package models

import "time"

// DeviceStatus is the lifecycle state of a registered device.
type DeviceStatus string

const (
	DeviceActive  DeviceStatus = "ACTIVE"
	DeviceRevoked DeviceStatus = "REVOKED"
	DeviceExpired DeviceStatus = "EXPIRED"
)

// DeviceRecord mirrors the remote authority's view of this device.
// Revocation is terminal for a device id; re-registration produces a new id
// together with fresh key material and an empty local store.
type DeviceRecord struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	UserID     string       `json:"userId"`
	Status     DeviceStatus `json:"status"`
	LastSeenAt time.Time    `json:"lastSeenAt"`
}

// OfflineLimits are the authority-imposed bounds on offline operation.
type OfflineLimits struct {
	MaxOfflineHours   int    `json:"maxOfflineHours"`
	MaxPendingActions int    `json:"maxPendingActions"`
	MaxPendingValue   string `json:"maxPendingValue"`
}

// OfflineStatus is the authority's report for a device, fetched while online.
type OfflineStatus struct {
	Device            DeviceRecord  `json:"device"`
	OfflineEnabled    bool          `json:"offlineEnabled"`
	Limits            OfflineLimits `json:"limits"`
	PendingCount      int           `json:"pendingCount"`
	PendingSalesValue string        `json:"pendingSalesValue"`
}
