package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newHistoryCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List or clear saved history",
	}
	cmd.AddCommand(newHistoryListCommand(app), newHistoryDeleteCommand(app), newHistoryClearCommand(app))
	return cmd
}

func newHistoryListCommand(app *App) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:         "list [COLLECTION]",
		Short:       "List records, or the collection names when none is given",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{needsHistory: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, name := range app.History.Names() {
					fmt.Fprintln(out, name)
				}
				return nil
			}
			store, err := app.History.Get(args[0])
			if err != nil {
				return err
			}
			records, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tKIND\tCREATED\tPAYLOAD")
			for _, r := range records {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.ID, r.Kind, r.CreatedAt, r.Payload)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}

func newHistoryDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:         "delete COLLECTION ID",
		Short:       "Delete one record",
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{needsHistory: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.History.Get(args[0])
			if err != nil {
				return err
			}
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("record id must be an integer: %w", err)
			}
			return store.Delete(cmd.Context(), id)
		},
	}
}

func newHistoryClearCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:         "clear COLLECTION",
		Short:       "Delete every record in a collection",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{needsHistory: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.History.Get(args[0])
			if err != nil {
				return err
			}
			return store.Clear(cmd.Context())
		},
	}
}
