package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dpetrovs/stockkeeper/internal/common"
)

func (a *App) pin(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Println("Usage: pin <set|clear>")
		return nil
	}

	switch args[0] {
	case "set":
		pin, err := GetPin(os.Stdout)
		if err != nil {
			return err
		}
		defer common.WipeByteArray(pin)

		if len(pin) == 0 {
			fmt.Println("PIN must not be empty")
			return nil
		}
		if err := a.svc.SetPin(ctx, pin); err != nil {
			return err
		}
		fmt.Println("PIN set, it will be required on the next start")

	case "clear":
		if err := a.svc.ClearPin(ctx); err != nil {
			return err
		}
		fmt.Println("PIN requirement removed")

	default:
		fmt.Println("Usage: pin <set|clear>")
	}
	return nil
}
