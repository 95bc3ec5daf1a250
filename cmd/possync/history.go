package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/njoerd114/possync/internal/model"
	"github.com/njoerd114/possync/internal/state"
)

func newHistoryCmd() *cobra.Command {
	var (
		typeName string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent sync runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var f state.HistoryFilter
			f.Limit = limit
			if typeName != "" {
				t, err := model.ParseEntityType(typeName)
				if err != nil {
					return err
				}
				f.Type = t
			}

			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entries, err := store.ListHistory(cmd.Context(), f)
			if err != nil {
				return err
			}
			if flagJSON {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			return printHistory(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().StringVar(&typeName, "type", "", "only show one entity type")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries to show (0 for all)")
	return cmd
}

// openStore opens the datastore without the rest of the app, for read-only
// commands.
func openStore(ctx context.Context) (*state.Store, error) {
	logger := buildLogger(stderr())
	store, err := state.Open(ctx, loadedCfg.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening datastore at %q: %w", loadedCfg.DatabasePath, err)
	}
	return store, nil
}

func printHistory(w io.Writer, entries []model.SyncHistoryEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No sync runs recorded yet.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tTYPE\tRESULT\tCOUNT\tNEW\tUPDATED\tSKIPPED\tTRIGGER\tERROR")
	for _, e := range entries {
		result := "ok"
		if !e.Success {
			result = "failed"
		}
		trigger := "manual"
		if e.IsScheduled {
			trigger = "scheduled"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.Type, result, e.Count, e.New, e.Updated, e.Skipped, trigger, truncate(e.Error, 60))
	}
	return tw.Flush()
}
