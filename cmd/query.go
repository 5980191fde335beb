package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aharmon/thirteenf/internal/query"
	"github.com/aharmon/thirteenf/internal/store"
)

func newQueryCmd() *cobra.Command {
	var (
		format   string
		limit    int
		quarters int
	)

	cmd := &cobra.Command{
		Use:   "query [name]",
		Short: "Run a named analytical query against the archive",
		Long: `Executes one of the fixed catalog of read-only analytical queries.
Run without arguments to list the catalog.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			if len(args) == 0 {
				return listQueries(cmd)
			}

			def, ok := query.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown query %q; run without arguments to list the catalog", args[0])
			}

			st, err := store.Open(filepath.Join(a.cfg.Output.Dir, storeFileName))
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.InitSchema(cmd.Context()); err != nil {
				return err
			}

			overrides := map[string]int{}
			if cmd.Flags().Changed("limit") {
				overrides["limit"] = limit
			}
			if cmd.Flags().Changed("quarters") {
				overrides["quarters"] = quarters
			}

			res, err := query.Run(cmd.Context(), st.DB(), def, overrides)
			if err != nil {
				return err
			}
			return query.Render(os.Stdout, res, query.Format(format))
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "output format: table, csv or json")
	cmd.Flags().IntVar(&limit, "limit", 0, "override the query's row limit")
	cmd.Flags().IntVar(&quarters, "quarters", 0, "override the query's quarter window")
	return cmd
}

func listQueries(cmd *cobra.Command) error {
	for _, def := range query.Catalog() {
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", def.Name, def.Title); err != nil {
			return err
		}
	}
	return nil
}
