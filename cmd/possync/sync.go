package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/njoerd114/possync/internal/model"
	syncp "github.com/njoerd114/possync/internal/sync"
)

func newSyncCmd() *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "sync <entity|all>",
		Short: "Run one sync and exit",
		Long: "Sync one entity type (" + entityNames() + ") or all of them in order.\n" +
			"Receipts sync only records created since the last successful receipt sync\n" +
			"unless --full is given.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entities, err := parseEntities(args[0])
			if err != nil {
				return err
			}
			return runSync(cmd, entities, !full)
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "fetch every receipt instead of only new ones")
	return cmd
}

func newStockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stock",
		Short: "Reconcile item stock with remote inventory levels and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, []model.EntityType{model.EntityStock}, false)
		},
	}
}

// parseEntities expands "all" to every entity type.
func parseEntities(arg string) ([]model.EntityType, error) {
	if arg == "all" {
		return model.AllEntities, nil
	}
	e, err := model.ParseEntityType(arg)
	if err != nil {
		return nil, fmt.Errorf("%w (want one of %s, or all)", err, entityNames())
	}
	return []model.EntityType{e}, nil
}

func entityNames() string {
	names := make([]string, len(model.AllEntities))
	for i, e := range model.AllEntities {
		names[i] = string(e)
	}
	return strings.Join(names, ", ")
}

// runSync runs each entity in order. Every failure is reported and the rest
// still run; the joined errors are returned.
func runSync(cmd *cobra.Command, entities []model.EntityType, quick bool) error {
	logger := buildLogger(stderr())

	ctx, cancel := shutdownContext(cmd.Context(), logger)
	defer cancel()

	a, err := openApp(ctx, loadedCfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		errs    []error
		results []syncp.Result
	)
	for _, entity := range entities {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		res, err := a.orch.Sync(ctx, entity, syncp.Options{Trigger: syncp.TriggerManual, Quick: quick})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", entity, err))
			continue
		}
		results = append(results, res)
	}

	if flagJSON {
		if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
	} else {
		for _, res := range results {
			printResult(cmd.OutOrStdout(), res)
		}
	}
	return errors.Join(errs...)
}

func printResult(w io.Writer, res syncp.Result) {
	if res.Stock != nil {
		fmt.Fprintf(w, "%-10s adjusted=%d unchanged=%d not_found=%d failed=%d\n",
			res.Entity, res.Stock.Adjusted, res.Stock.Unchanged, res.Stock.NotFound, res.Stock.Failed)
		return
	}
	line := fmt.Sprintf("%-10s total=%d new=%d updated=%d skipped=%d failed=%d",
		res.Entity, res.Counts.Total, res.Counts.New, res.Counts.Updated, res.Counts.Skipped, res.Counts.Failed)
	if !res.Since.IsZero() {
		line += " since=" + res.Since.Format("2006-01-02T15:04:05Z07:00")
	}
	fmt.Fprintln(w, line)
}
