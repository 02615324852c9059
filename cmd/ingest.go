package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rentbench/fmr-cli/internal/dataset"
	"github.com/rentbench/fmr-cli/internal/fetcher"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Sync HUD, FRED, and market-rent source data",
	Long: `Sync source datasets into the Postgres store.

By default, syncs every dataset whose cadence says it is due. Use
--datasets to restrict to specific datasets and --force to ignore the
schedule.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("ingest"); err != nil {
			return err
		}
		log := zap.L().With(zap.String("command", "ingest"))

		pool, err := ingestPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		opts := parseIngestOpts(cmd)

		tempDir := cfg.Ingest.TempDir
		if err := os.MkdirAll(tempDir, 0o755); err != nil {
			return eris.Wrapf(err, "ingest: create temp dir %s", tempDir)
		}

		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{MaxRetries: 3})

		syncLog := dataset.NewSyncLog(pool)
		reg := dataset.NewRegistry(cfg)
		engine := dataset.NewEngine(pool, f, syncLog, reg, tempDir)

		log.Info("starting ingest",
			zap.Strings("datasets", opts.Datasets),
			zap.Bool("force", opts.Force),
		)

		if err := engine.Run(ctx, opts); err != nil {
			return eris.Wrap(err, "ingest")
		}

		fmt.Println("Ingest complete")
		return nil
	},
}

var ingestStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the dataset sync log",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("ingest"); err != nil {
			return err
		}

		pool, err := ingestPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		sl := dataset.NewSyncLog(pool)
		entries, err := sl.ListAll(ctx)
		if err != nil {
			return eris.Wrap(err, "ingest status")
		}

		if len(entries) == 0 {
			zap.L().Info("no sync entries found, run 'ingest' to sync datasets")
			return nil
		}

		formatStatusEntries(os.Stdout, entries)
		return nil
	},
}

func init() {
	ingestCmd.Flags().String("datasets", "", "comma-separated dataset names (e.g., fmr,safmr)")
	ingestCmd.Flags().Bool("force", false, "ignore cadence scheduling")
	ingestCmd.AddCommand(ingestStatusCmd)
	rootCmd.AddCommand(ingestCmd)
}

// ingestPool creates a pgxpool.Pool for the ingest subsystem.
func ingestPool(ctx context.Context) (*pgxpool.Pool, error) {
	dsn := cfg.Store.DatabaseURL
	if dsn == "" {
		return nil, eris.New("ingest: store.database_url is not configured")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "ingest: ping database")
	}

	return pool, nil
}

func parseIngestOpts(cmd *cobra.Command) dataset.RunOpts {
	datasetsStr, _ := cmd.Flags().GetString("datasets")
	force, _ := cmd.Flags().GetBool("force")

	opts := dataset.RunOpts{Force: force}
	if datasetsStr != "" {
		opts.Datasets = strings.Split(datasetsStr, ",")
		for i := range opts.Datasets {
			opts.Datasets[i] = strings.TrimSpace(opts.Datasets[i])
		}
	}
	return opts
}

// formatStatusEntries writes a tabular representation of sync entries to w.
func formatStatusEntries(out io.Writer, entries []dataset.SyncEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATASET\tSTATUS\tSTARTED\tDURATION\tROWS\tERROR")
	_, _ = fmt.Fprintln(w, "-------\t------\t-------\t--------\t----\t-----")

	for _, e := range entries {
		dur := "-"
		if e.CompletedAt != nil {
			d := e.CompletedAt.Sub(e.StartedAt).Round(time.Second)
			dur = d.String()
		}

		errMsg := ""
		if e.Error != "" {
			errMsg = truncate(e.Error, 60)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			e.Dataset,
			e.Status,
			e.StartedAt.Format("2006-01-02 15:04"),
			dur,
			e.RowsSynced,
			errMsg,
		)
	}
	_ = w.Flush()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
