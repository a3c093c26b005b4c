package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kartikbazzad/bunbase/lookup/internal/auth"
	"github.com/kartikbazzad/bunbase/lookup/internal/config"
	"github.com/kartikbazzad/bunbase/lookup/internal/export"
	"github.com/kartikbazzad/bunbase/lookup/internal/query"
	"github.com/kartikbazzad/bunbase/lookup/internal/records"
	"github.com/kartikbazzad/bunbase/lookup/internal/snapshot"
)

var (
	configFile string
	dataPath   string

	// writeTable is swapped in tests.
	writeTable = export.Write
)

var rootCmd = &cobra.Command{
	Use:          "lookup",
	Short:        "Query a lookup dataset from the command line",
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ---- Cobra command wiring ----

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (defaults to .env when present)")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "Dataset JSON file (overrides config)")

	// search
	var searchParams []string
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Filter and paginate records, printing {total,data}",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, recs, err := loadDataset(cmd.Context())
			if err != nil {
				return err
			}
			values, err := parseParams(searchParams)
			if err != nil {
				return err
			}
			return runSearch(cmd.OutOrStdout(), recs, values, cfg.Query)
		},
	}
	searchCmd.Flags().StringArrayVarP(&searchParams, "param", "p", nil, "Query parameter as key=value (repeatable)")

	// filters
	var fields []string
	filtersCmd := &cobra.Command{
		Use:   "filters",
		Short: "List the distinct values of fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, recs, err := loadDataset(cmd.Context())
			if err != nil {
				return err
			}
			if len(fields) == 0 {
				fields = cfg.Query.FilterFields
			}
			return runFilters(cmd.OutOrStdout(), recs, fields, cfg.Query.Locale)
		},
	}
	filtersCmd.Flags().StringSliceVarP(&fields, "field", "f", nil, "Field to list (repeatable or comma separated)")

	// export
	var exportParams []string
	var out string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write matching records to an xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, recs, err := loadDataset(cmd.Context())
			if err != nil {
				return err
			}
			values, err := parseParams(exportParams)
			if err != nil {
				return err
			}
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			n, err := runExport(out, recs, values, cfg.Query)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d records to %s\n", n, out)
			return nil
		},
	}
	exportCmd.Flags().StringArrayVarP(&exportParams, "param", "p", nil, "Query parameter as key=value (repeatable)")
	exportCmd.Flags().StringVarP(&out, "out", "o", "", "Output .xlsx path")

	// hash-password
	hashCmd := &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for the users file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	rootCmd.AddCommand(searchCmd, filtersCmd, exportCmd, hashCmd)
}

func loadDataset(ctx context.Context) (config.Config, []records.Record, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	if dataPath != "" {
		cfg.Data.Path = dataPath
	}
	if ctx == nil {
		ctx = context.Background()
	}
	recs, err := snapshot.FileSource{Path: cfg.Data.Path}.Load(ctx)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, recs, nil
}

// parseParams turns key=value pairs into query values. Repeated keys accumulate.
func parseParams(params []string) (url.Values, error) {
	values := url.Values{}
	for _, p := range params {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q, want key=value", p)
		}
		values.Add(key, value)
	}
	return values, nil
}

func queryOptions(cfg config.QueryConfig) query.Options {
	return query.Options{
		DateFields:   cfg.DateFields,
		DefaultLimit: cfg.DefaultLimit,
		MaxLimit:     cfg.MaxLimit,
	}
}

func runSearch(w io.Writer, recs []records.Record, values url.Values, cfg config.QueryConfig) error {
	result := query.Search(recs, query.Parse(values, queryOptions(cfg)))
	return writeJSON(w, result)
}

func runFilters(w io.Writer, recs []records.Record, fields []string, locale string) error {
	return writeJSON(w, query.DistinctValues(recs, fields, query.NewCollator(locale)))
}

func runExport(path string, recs []records.Record, values url.Values, cfg config.QueryConfig) (int, error) {
	q := query.Parse(values, queryOptions(cfg))
	columns := cfg.ExportColumns
	if len(columns) == 0 {
		columns = records.BuildCatalog(recs)
	}
	table := export.Project(recs, q, columns, cfg.DateFields)

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	if err := writeTable(f, table); err != nil {
		f.Close()
		os.Remove(path)
		return 0, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return 0, err
	}
	return len(table.Rows), nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
