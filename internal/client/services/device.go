// Package services wires the store, queue and remote authority client into
// the device identity, sync and conflict resolution workflows, behind the
// OfflineService facade the UI talks to.
package services

import (
	"context"
	"errors"

	"github.com/dpetrovs/stockkeeper/internal/client/models"
	"github.com/dpetrovs/stockkeeper/internal/client/remote"
	"github.com/dpetrovs/stockkeeper/internal/client/store"
	"github.com/dpetrovs/stockkeeper/internal/common"
	"github.com/dpetrovs/stockkeeper/internal/logging"
	"github.com/google/uuid"
)

// DeviceService manages the installation's device identity with the remote
// authority.
type DeviceService struct {
	store  *store.Store
	remote remote.Client
	log    logging.Logger
}

// NewDeviceService returns a device identity manager.
func NewDeviceService(s *store.Store, r remote.Client, log logging.Logger) *DeviceService {
	return &DeviceService{store: s, remote: r, log: log}
}

// GetOrCreateDeviceID returns the installation's device id, generating and
// persisting a fresh one on first use. The id is stable across restarts
// until the device is revoked.
func (s *DeviceService) GetOrCreateDeviceID(ctx context.Context) (string, error) {
	id, err := s.store.DeviceID(ctx)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return "", err
	}

	id = uuid.NewString()
	if err := s.store.SetDeviceID(ctx, id); err != nil {
		return "", err
	}
	s.log.Info(ctx, "generated device id", "device_id", id)
	return id, nil
}

// Register registers this device with the authority and mirrors the returned
// record locally. On a remote failure nothing is mirrored.
func (s *DeviceService) Register(ctx context.Context, deviceName, userID string) (*models.DeviceRecord, error) {
	id, err := s.GetOrCreateDeviceID(ctx)
	if err != nil {
		return nil, err
	}

	record, err := s.remote.RegisterDevice(ctx, remote.RegisterDeviceRequest{
		DeviceName: deviceName,
		DeviceID:   id,
		UserID:     userID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.SetDeviceRecord(ctx, record); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "device registered", "device_id", record.ID, "name", record.Name)
	return record, nil
}

// Record returns the locally mirrored device record, or common.ErrNotFound
// when the device was never registered.
func (s *DeviceService) Record(ctx context.Context) (*models.DeviceRecord, error) {
	return s.store.GetDeviceRecord(ctx)
}

// Status fetches the authority's offline report and refreshes the local
// device record mirror.
func (s *DeviceService) Status(ctx context.Context) (*models.OfflineStatus, error) {
	id, err := s.store.DeviceID(ctx)
	if err != nil {
		return nil, err
	}

	status, err := s.remote.Status(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetDeviceRecord(ctx, &status.Device); err != nil {
		s.log.Warn(ctx, "could not mirror device record", "error", err.Error())
	}
	return status, nil
}

// Revoke revokes this device. The authority is notified first when
// reachable, but the local wipe happens unconditionally: key material is
// rotated (which purges every encrypted record) and the device id is
// deleted, so revocation works on an offline or locked device too.
func (s *DeviceService) Revoke(ctx context.Context) error {
	id, err := s.store.DeviceID(ctx)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}

	if id != "" {
		if err := s.remote.RevokeDevice(ctx, id); err != nil {
			s.log.Warn(ctx, "could not notify authority of revocation", "device_id", id, "error", err.Error())
		}
	}

	if err := s.store.RotateKey(ctx); err != nil {
		return err
	}
	if err := s.store.DeleteDeviceID(ctx); err != nil {
		return err
	}
	s.log.Info(ctx, "device revoked, local data destroyed", "device_id", id)
	return nil
}
