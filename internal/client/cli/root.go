package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dpetrovs/stockkeeper/internal/common"
)

func (a *App) getStatus(ctx context.Context) string {
	flags, err := a.svc.SyncFlags(ctx)
	if err != nil {
		return ""
	}
	if flags.SyncBlocked {
		return "(sync blocked)"
	}
	return ""
}

// Root runs the interactive command loop. The loop exits on scanner EOF or
// when the operator types "exit" or "quit". Command handlers report their
// own errors; the loop only prints them and keeps going.
func (a *App) Root(ctx context.Context) {
	fmt.Println("stockkeeper offline console (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("sk %s> ", a.getStatus(ctx))
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		var err error
		switch cmd {
		case "help":
			fmt.Println("Capture:   adjust, count, sale")
			fmt.Println("Queue:     queue, stats, sync, receipts")
			fmt.Println("Conflicts: conflicts, resolve <id> <option>")
			fmt.Println("Device:    register, status, revoke")
			fmt.Println("Security:  pin set, pin clear")
			fmt.Println("Other:     help, exit")

		case "adjust":
			err = a.adjust(ctx)
		case "count":
			err = a.count(ctx)
		case "sale":
			err = a.sale(ctx)
		case "queue":
			err = a.listQueue(ctx)
		case "stats":
			err = a.stats(ctx)
		case "sync":
			err = a.sync(ctx)
		case "receipts":
			err = a.receipts(ctx)
		case "conflicts":
			err = a.conflicts(ctx)
		case "resolve":
			err = a.resolve(ctx, args)
		case "register":
			err = a.register(ctx)
		case "status":
			err = a.status(ctx)
		case "revoke":
			err = a.revoke(ctx)
		case "pin":
			err = a.pin(ctx, args)
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}

		if err != nil {
			printError(err)
		}
	}
}

// printError translates engine errors into operator-facing messages.
func printError(err error) {
	switch {
	case errors.Is(err, common.ErrQueueFull):
		fmt.Println("Queue is full: sync before capturing more actions")
	case errors.Is(err, common.ErrUnavailable):
		fmt.Println("Authority unreachable, queued actions will sync later")
	case errors.Is(err, common.ErrPinRequired):
		fmt.Println("Store is locked: restart and enter the PIN")
	case errors.Is(err, common.ErrNotFound):
		fmt.Println("Not found")
	default:
		fmt.Println("Error:", err)
	}
}
