package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dpetrovs/stockkeeper/internal/client/models"
	"github.com/shopspring/decimal"
)

func (a *App) adjust(ctx context.Context) error {
	productID, err := GetSimpleText(a.reader, "Product id", os.Stdout)
	if err != nil {
		return err
	}
	locationID, err := GetSimpleText(a.reader, "Location id", os.Stdout)
	if err != nil {
		return err
	}
	delta, err := GetDecimal(a.reader, "Quantity delta (negative to remove stock)", os.Stdout)
	if err != nil {
		return err
	}
	reason, err := GetSimpleText(a.reader, "Reason", os.Stdout)
	if err != nil {
		return err
	}

	action, err := a.svc.EnqueueStockAdjustment(ctx, models.StockAdjustment{
		ProductID:  productID,
		LocationID: locationID,
		Delta:      delta,
		Reason:     reason,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Queued stock adjustment %s\n", action.ID)
	return nil
}

func (a *App) count(ctx context.Context) error {
	productID, err := GetSimpleText(a.reader, "Product id", os.Stdout)
	if err != nil {
		return err
	}
	locationID, err := GetSimpleText(a.reader, "Location id", os.Stdout)
	if err != nil {
		return err
	}
	counted, err := GetDecimal(a.reader, "Counted quantity", os.Stdout)
	if err != nil {
		return err
	}

	action, err := a.svc.EnqueueStockCount(ctx, models.StockCount{
		ProductID:  productID,
		LocationID: locationID,
		Counted:    counted,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Queued stock count %s\n", action.ID)
	return nil
}

func (a *App) sale(ctx context.Context) error {
	locationID, err := GetSimpleText(a.reader, "Location id", os.Stdout)
	if err != nil {
		return err
	}

	var lines []models.SaleLine
	total := decimal.Zero
	for {
		productID, err := GetSimpleText(a.reader, "Product id (empty line to finish)", os.Stdout)
		if err != nil {
			return err
		}
		if productID == "" {
			break
		}
		qty, err := GetDecimal(a.reader, "Quantity", os.Stdout)
		if err != nil {
			return err
		}
		price, err := GetDecimal(a.reader, "Unit price", os.Stdout)
		if err != nil {
			return err
		}
		lines = append(lines, models.SaleLine{ProductID: productID, Quantity: qty, UnitPrice: price})
		total = total.Add(price.Mul(qty))
	}
	if len(lines) == 0 {
		fmt.Println("Sale needs at least one line")
		return nil
	}

	action, err := a.svc.EnqueueSale(ctx, models.Sale{
		LocationID: locationID,
		Lines:      lines,
		Total:      total,
	})
	if err != nil {
		return err
	}

	body, err := action.Payload.Unwrap()
	if err != nil {
		return err
	}
	sale := body.(models.Sale)
	fmt.Printf("Queued sale %s, provisional receipt %s, total %s\n", action.ID, sale.LocalReceiptNumber, total.StringFixed(2))
	return nil
}

func (a *App) listQueue(ctx context.Context) error {
	items, err := a.svc.Actions(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("Queue is empty")
		return nil
	}
	for _, item := range items {
		line := fmt.Sprintf("%s  %-16s  %-8s  %s", item.ID, item.Type, item.Status, item.ProvisionalAt.Format("2006-01-02 15:04:05"))
		if item.ConflictReason != "" {
			line += "  " + string(item.ConflictReason)
		}
		if item.ErrorMessage != "" {
			line += "  " + item.ErrorMessage
		}
		fmt.Println(line)
	}
	return nil
}

func (a *App) stats(ctx context.Context) error {
	stats, err := a.svc.QueueStats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Actions: %d/%d  Bytes: %d/%d\n", stats.Count, stats.MaxItems, stats.Bytes, stats.MaxBytes)

	flags, err := a.svc.SyncFlags(ctx)
	if err != nil {
		return err
	}
	if flags.LastSyncAt != nil {
		fmt.Println("Last sync:", flags.LastSyncAt.Local().Format("2006-01-02 15:04:05"))
	} else {
		fmt.Println("Never synced")
	}
	if flags.SyncBlocked {
		fmt.Println("Sync is blocked by a transient failure, will retry")
	}
	return nil
}

func (a *App) sync(ctx context.Context) error {
	res, err := a.svc.SyncQueue(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Synced %d, conflicts %d, rejected %d\n", res.Submitted, res.Conflicts, res.Rejected)
	if res.Retryable {
		fmt.Println("Some actions could not reach the authority and stay queued")
	}
	if res.Revoked {
		fmt.Println("This device was revoked: local data has been destroyed")
	}
	return nil
}

func (a *App) receipts(ctx context.Context) error {
	entries, err := a.svc.Receipts(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No receipt reconciliations")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s -> %s  (%s)\n", e.LocalReceiptNumber, e.ReceiptNumber, e.SyncedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}
