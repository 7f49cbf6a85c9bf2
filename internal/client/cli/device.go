package cli

import (
	"context"
	"fmt"
	"os"
)

func (a *App) register(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "Device name", os.Stdout)
	if err != nil {
		return err
	}
	userID, err := GetSimpleText(a.reader, "User id", os.Stdout)
	if err != nil {
		return err
	}

	record, err := a.svc.Device.Register(ctx, name, userID)
	if err != nil {
		return err
	}
	fmt.Printf("Registered device %s (%s)\n", record.ID, record.Status)
	return nil
}

func (a *App) status(ctx context.Context) error {
	status, err := a.svc.Device.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Device %s: %s\n", status.Device.ID, status.Device.Status)
	fmt.Printf("Offline enabled: %v\n", status.OfflineEnabled)
	fmt.Printf("Limits: %dh offline, %d pending actions, %s pending value\n",
		status.Limits.MaxOfflineHours, status.Limits.MaxPendingActions, status.Limits.MaxPendingValue)
	fmt.Printf("Authority sees %d pending actions\n", status.PendingCount)
	return nil
}

func (a *App) revoke(ctx context.Context) error {
	confirm, err := GetSimpleText(a.reader, "Revoking destroys all local offline data. Type 'revoke' to confirm", os.Stdout)
	if err != nil {
		return err
	}
	if confirm != "revoke" {
		fmt.Println("Aborted")
		return nil
	}

	if err := a.svc.Device.Revoke(ctx); err != nil {
		return err
	}
	fmt.Println("Device revoked, local data destroyed")
	return nil
}
