package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/bramble/config"
	"github.com/Ramsey-B/bramble/pkg/graph"
	"github.com/Ramsey-B/bramble/pkg/ingest"
	"github.com/Ramsey-B/bramble/pkg/source"
)

type ingestOptions struct {
	input      string
	format     string
	column     string
	jmesPath   string
	sourceName string
}

func newIngestCmd(a *app) *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Extract entities from every description and upsert them into the graph",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.apply(a.cfg)
			return a.runIngest(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "Input file (overrides INPUT_PATH)")
	cmd.Flags().StringVar(&opts.format, "format", "", "Input format: csv, jsonl or postgres (overrides INPUT_FORMAT)")
	cmd.Flags().StringVar(&opts.column, "column", "", "CSV column or postgres column holding the description (overrides INPUT_COLUMN)")
	cmd.Flags().StringVar(&opts.jmesPath, "jmespath", "", "JMESPath selecting the description of a JSON line (overrides INPUT_JMESPATH)")
	cmd.Flags().StringVar(&opts.sourceName, "source-name", "", "Provenance written to each record (overrides SOURCE_NAME)")
	return cmd
}

func (o ingestOptions) apply(cfg *config.Config) {
	if o.input != "" {
		cfg.InputPath = o.input
	}
	if o.format != "" {
		cfg.InputFormat = o.format
	}
	if o.column != "" {
		cfg.InputColumn = o.column
	}
	if o.jmesPath != "" {
		cfg.InputJMESPath = o.jmesPath
	}
	if o.sourceName != "" {
		cfg.SourceName = o.sourceName
	}
}

func (a *app) runIngest(ctx context.Context, cmd *cobra.Command) error {
	rt, err := a.connect(ctx, true)
	if err != nil {
		return err
	}
	defer a.closeRuntime(rt)

	src, closeSource, err := a.buildSource(ctx)
	if err != nil {
		return err
	}
	defer closeSource()

	engine := graph.NewEngine(rt.client, rt.statements, a.logger)
	if err := engine.EnsureSchema(ctx); err != nil {
		return err
	}

	processor := ingest.NewProcessor(rt.rules, engine, rt.sink, a.logger)
	summary, err := processor.Run(ctx, src)
	if summary != nil {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		_ = enc.Encode(summary)
	}
	return err
}

// buildSource opens the configured input. The returned func releases it.
func (a *app) buildSource(ctx context.Context) (source.Source, func(), error) {
	name := a.cfg.SourceLabel()
	switch a.cfg.InputFormat {
	case config.FormatCSV:
		return source.NewCSVSource(a.cfg.InputPath, a.cfg.InputColumn, name), func() {}, nil
	case config.FormatJSONL:
		src, err := source.NewJSONLSource(a.cfg.InputPath, a.cfg.InputJMESPath, name)
		if err != nil {
			return nil, nil, err
		}
		return src, func() {}, nil
	case config.FormatPostgres:
		db, err := source.Connect(ctx, a.cfg.PostgresDSN())
		if err != nil {
			return nil, nil, err
		}
		db.SetMaxOpenConns(a.cfg.DatabaseMaxOpenConns)
		db.SetConnMaxLifetime(a.cfg.DatabaseConnMaxLifetime)

		src, err := source.NewPostgresSource(db, source.PostgresConfig{
			Table:             a.cfg.DatabaseTable,
			IDColumn:          a.cfg.DatabaseIDColumn,
			DescriptionColumn: a.cfg.InputColumn,
			Name:              name,
		}, a.logger)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return src, func() { _ = db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unsupported input format %q", a.cfg.InputFormat)
}

// closeRuntime releases dependencies on a fresh context so a cancelled run still
// flushes and disconnects
func (a *app) closeRuntime(rt *runtime) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rt.close(ctx); err != nil {
		a.logger.WithError(err).Warn("Failed to stop dependencies cleanly")
	}
}

