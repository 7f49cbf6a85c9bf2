package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dpetrovs/stockkeeper/internal/client/models"
)

func (a *App) conflicts(ctx context.Context) error {
	items, err := a.svc.Conflicts.List(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("No conflicts")
		return nil
	}
	for _, item := range items {
		options := make([]string, 0, 3)
		for _, o := range item.ConflictReason.ResolutionOptions() {
			options = append(options, string(o))
		}
		fmt.Printf("%s  %-16s  %-18s  options: %s\n", item.ID, item.Type, item.ConflictReason, strings.Join(options, ", "))
	}
	return nil
}

// parseResolution maps the operator's token to a resolution option.
func parseResolution(s string) (models.ResolutionOption, error) {
	switch strings.ToUpper(s) {
	case "RETRY":
		return models.ResolutionRetry, nil
	case "DISMISS":
		return models.ResolutionDismiss, nil
	case "OVERRIDE_PRICE", "OVERRIDE":
		return models.ResolutionOverridePrice, nil
	case "SYNC_APPROVAL", "APPROVE":
		return models.ResolutionSyncApproval, nil
	default:
		return "", fmt.Errorf("unknown resolution %q", s)
	}
}

func (a *App) resolve(ctx context.Context, args []string) error {
	if len(args) != 2 {
		fmt.Println("Usage: resolve <action-id> <retry|dismiss|override|approve>")
		return nil
	}

	option, err := parseResolution(args[1])
	if err != nil {
		return err
	}

	res, err := a.svc.Conflicts.Resolve(ctx, args[0], option)
	if err != nil {
		return err
	}
	if res == nil {
		fmt.Println("Done")
		return nil
	}

	switch {
	case res.Submitted > 0:
		fmt.Println("Resolved and accepted by the authority")
	case res.Conflicts > 0:
		fmt.Println("Resubmission conflicted again, see 'conflicts'")
	case res.Rejected > 0:
		fmt.Println("Resubmission was rejected, see 'queue'")
	case res.Retryable:
		fmt.Println("Authority unreachable, the action stays queued")
	}
	return nil
}
