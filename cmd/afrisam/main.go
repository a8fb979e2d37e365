// afrisam ingests SAM.gov contract opportunity extracts, keeps the
// Africa-region records, and maintains an identity-keyed store.
//
// Usage:
//
//	afrisam update                      pull the rolling extract and merge it
//	afrisam backfill [--start --end]    ingest archived fiscal years
//	afrisam ingest FILE...              ingest explicit files or URLs
//	afrisam export                      write a parquet snapshot of the store
//	afrisam stats                       print store counts
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/afridata/afrisam/internal/checkpoint"
	"github.com/afridata/afrisam/internal/config"
	"github.com/afridata/afrisam/internal/export"
	"github.com/afridata/afrisam/internal/feed"
	"github.com/afridata/afrisam/internal/ingest"
	"github.com/afridata/afrisam/internal/logging"
	"github.com/afridata/afrisam/internal/metrics"
	"github.com/afridata/afrisam/internal/store"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	app := &cli.App{
		Name:    "afrisam",
		Usage:   "Africa-region SAM.gov contract opportunity ingestion",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
				EnvVars: []string{"AFRISAM_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log format (text, json)",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Enable the Prometheus endpoint on this address",
			},
		},

		Commands: []*cli.Command{
			updateCommand(),
			backfillCommand(),
			ingestCommand(),
			exportCommand(),
			statsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads config, initializes logging and metrics, and returns a
// signal-cancelled context.
func setup(c *cli.Context) (config.Config, context.Context, context.CancelFunc, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, nil, nil, err
	}

	if v := c.String("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v := c.String("log-format"); v != "" {
		cfg.Logging.Format = v
	}
	if v := c.String("metrics-addr"); v != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Address = v
	}

	logging.Setup(logging.Config{
		Format: cfg.Logging.Format,
		Level:  cfg.Logging.Level,
	})

	if cfg.Metrics.Enabled {
		metrics.Init("afrisam")
		go func() {
			if err := metrics.StartServer(cfg.Metrics.Address); err != nil {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return cfg, ctx, cancel, nil
}

func openStore(ctx context.Context, cfg config.Config) (store.RecordStore, error) {
	if cfg.Store.DSN == "" {
		return nil, fmt.Errorf("no database DSN configured (set AFRISAM_DSN or store.dsn)")
	}
	return store.NewPostgres(ctx, cfg.Store.DSN)
}

func newPipeline(cfg config.Config, st store.RecordStore) *ingest.Pipeline {
	fetcher := feed.NewFetcher(
		cfg.Feed.SpoolDir,
		cfg.Feed.Timeout(),
		cfg.Feed.Retries,
		cfg.Feed.Backoff(),
	)
	return ingest.New(st, fetcher, cfg.Ingest.ChunkSize)
}

func updateCommand() *cli.Command {
	return &cli.Command{
		Name:  "update",
		Usage: "Fetch the rolling current-year extract and merge it into the store",
		Action: func(c *cli.Context) error {
			cfg, ctx, cancel, err := setup(c)
			if err != nil {
				return err
			}
			defer cancel()

			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			report, err := newPipeline(cfg, st).Update(ctx)
			printReport(report)
			return err
		},
	}
}

func backfillCommand() *cli.Command {
	return &cli.Command{
		Name:  "backfill",
		Usage: "Ingest archived fiscal years, resuming from the last checkpoint",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "start-year",
				Usage: "First fiscal year to ingest (default from config)",
			},
			&cli.IntFlag{
				Name:  "end-year",
				Usage: "Last fiscal year to ingest (default from config)",
			},
			&cli.BoolFlag{
				Name:  "no-resume",
				Usage: "Ignore any existing checkpoint and start from the first year",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, ctx, cancel, err := setup(c)
			if err != nil {
				return err
			}
			defer cancel()

			start := cfg.Backfill.StartYear
			end := cfg.Backfill.EndYear
			if c.IsSet("start-year") {
				start = c.Int("start-year")
			}
			if c.IsSet("end-year") {
				end = c.Int("end-year")
			}
			if start < feed.FirstArchiveYear {
				return fmt.Errorf("no archives exist before %d", feed.FirstArchiveYear)
			}
			if start > end {
				return fmt.Errorf("start year %d is after end year %d", start, end)
			}

			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			ckpt, err := checkpoint.NewManager(checkpoint.Config{
				Enabled: cfg.Checkpoint.Enabled,
				Dir:     cfg.Checkpoint.Dir,
			})
			if err != nil {
				return err
			}
			if c.Bool("no-resume") {
				if err := ckpt.Clear(ctx); err != nil {
					return err
				}
			}

			report, err := newPipeline(cfg, st).Backfill(ctx, start, end, ckpt)
			printReport(report)
			return err
		},
	}
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Ingest explicit extract files (local paths, http(s), s3://, gs://)",
		ArgsUsage: "FILE...",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("no source files given")
			}

			cfg, ctx, cancel, err := setup(c)
			if err != nil {
				return err
			}
			defer cancel()

			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			report, err := newPipeline(cfg, st).IngestRefs(ctx, c.Args().Slice())
			printReport(report)
			if err != nil {
				return err
			}
			if len(report.FailedSources) > 0 {
				return fmt.Errorf("%d source(s) failed", len(report.FailedSources))
			}
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write a parquet snapshot of the store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dest",
				Usage: "Destination directory or bucket URL (default from config)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, ctx, cancel, err := setup(c)
			if err != nil {
				return err
			}
			defer cancel()

			dest := cfg.Export.Dest
			if c.IsSet("dest") {
				dest = c.String("dest")
			}

			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			name, err := export.New(st, dest).Export(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", name)
			return nil
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Print store counts by region and year",
		Action: func(c *cli.Context) error {
			cfg, ctx, cancel, err := setup(c)
			if err != nil {
				return err
			}
			defer cancel()

			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			total, err := st.Count(ctx)
			if err != nil {
				return err
			}
			byRegion, err := st.CountByRegion(ctx)
			if err != nil {
				return err
			}
			byYear, err := st.CountByYear(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("records: %d\n\n", total)

			fmt.Println("by region:")
			codes := make([]string, 0, len(byRegion))
			for code := range byRegion {
				codes = append(codes, code)
			}
			sort.Strings(codes)
			for _, code := range codes {
				fmt.Printf("  %-4s %d\n", code, byRegion[code])
			}

			fmt.Println("\nby year:")
			years := make([]int, 0, len(byYear))
			for year := range byYear {
				years = append(years, year)
			}
			sort.Ints(years)
			for _, year := range years {
				label := fmt.Sprintf("%d", year)
				if year == 0 {
					label = "undated"
				}
				fmt.Printf("  %-8s %d\n", label, byYear[year])
			}
			return nil
		},
	}
}

func printReport(report ingest.RunReport) {
	t := report.Totals()
	fmt.Printf("run %s: files=%d rows=%d inserted=%d updated=%d skipped=%d dropped=%d malformed=%d\n",
		report.RunID, len(report.Files), t.RowsRead,
		t.Inserted, t.Updated, t.Skipped,
		t.DroppedNoRegion+t.DroppedNoIdentity, t.Malformed)
	for _, src := range report.FailedSources {
		fmt.Printf("  failed: %s\n", src)
	}
}
