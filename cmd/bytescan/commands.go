package main

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"bytescan/catalog"
	"bytescan/core"
)

type app struct {
	configPath string
	batchSize  int
	config     *core.Config
	registry   *catalog.Registry
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "bytescan",
		Short:        "Scan CSV and Parquet tables into record batches",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (yaml, json or toml)")
	root.PersistentFlags().IntVar(&a.batchSize, "batch-size", 0, "rows per batch (default from config)")

	root.AddCommand(
		a.tablesCommand(),
		a.schemaCommand(),
		a.scanCommand(),
		a.queryCommand(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := core.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("batch-size") {
		if a.batchSize <= 0 {
			return errors.Newf("--batch-size must be positive, got %d", a.batchSize)
		}
		cfg.BatchSize = a.batchSize
	}
	core.GetTracer().Configure(cfg.Trace.Level, cfg.Trace.Components)

	a.config = cfg
	a.registry = catalog.NewRegistry(cfg.DataDir, cfg.BatchSize)
	a.registry.SetSchemaCache(core.NewSchemaCache(cfg.SchemaCache))
	if err := a.registry.LoadConfig(cfg); err != nil {
		return err
	}

	core.GetTracer().Debug(core.TraceComponentCLI, "Command started", core.TraceContext(
		"command", cmd.Name(), "batch_size", cfg.BatchSize, "tables", len(cfg.Tables)))
	return nil
}

func (a *app) tablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List configured tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			names := a.registry.ListTables()
			if len(names) == 0 {
				_, err := io.WriteString(out, "No tables configured\n")
				return err
			}
			infos := make([]catalog.TableInfo, len(names))
			for i, name := range names {
				info, err := a.registry.Info(name)
				if err != nil {
					return err
				}
				infos[i] = info
			}
			return writeTables(out, infos)
		},
	}
}

func (a *app) schemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <table>",
		Short: "Describe the columns of a table or file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := a.registry.Resolve(args[0])
			if err != nil {
				return err
			}
			schema, err := src.Schema()
			if err != nil {
				return err
			}
			return writeSchema(cmd.OutOrStdout(), args[0], schema)
		},
	}
}

func (a *app) scanCommand() *cobra.Command {
	var (
		columns string
		limit   int
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "scan <table>",
		Short: "Print the rows of a table or file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var projection []string
			if columns != "" {
				projection = splitColumns(columns)
			}
			return a.scan(cmd.OutOrStdout(), args[0], projection, limit, asJSON)
		},
	}
	cmd.Flags().StringVar(&columns, "columns", "", "comma separated columns to read")
	cmd.Flags().IntVar(&limit, "limit", -1, "maximum rows to print")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print rows as JSON")
	return cmd
}

func (a *app) queryCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run SELECT columns FROM table [LIMIT n]",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := core.ParseScanQuery(args[0])
			if err != nil {
				return err
			}
			return a.scan(cmd.OutOrStdout(), q.Table, q.Columns, q.Limit, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print rows as JSON")
	return cmd
}

func (a *app) scan(out io.Writer, table string, projection []string, limit int, asJSON bool) error {
	src, err := a.registry.Resolve(table)
	if err != nil {
		return err
	}
	it, err := src.Scan(projection)
	if err != nil {
		return err
	}
	rows, err := collectRows(it, limit)
	if err != nil {
		return err
	}

	core.GetTracer().Info(core.TraceComponentCLI, "Scan finished", core.TraceContext(
		"table", table, "rows", len(rows.values)))
	if asJSON {
		return writeJSON(out, rows)
	}
	return writeRows(out, rows)
}

func splitColumns(s string) []string {
	parts := strings.Split(s, ",")
	columns := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			columns = append(columns, p)
		}
	}
	return columns
}
