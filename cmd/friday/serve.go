package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/aatumaykin/friday/internal/logger"
	"github.com/aatumaykin/friday/internal/metrics"
	"github.com/aatumaykin/friday/internal/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler (main command)",
	Long: `Load the configuration and the job files, then fire every job on its
schedule until SIGINT or SIGTERM. Running steps are killed on shutdown.`,
	Args: cobra.NoArgs,
	Run:  serveHandler,
}

func serveHandler(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runServe(ctx, configDir, debug, cmd.OutOrStdout()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context, dir string, debug bool, out io.Writer) error {
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg, debug)
	if err != nil {
		return err
	}
	defer log.Close()
	logger.SetDefault(log)

	log.Info("starting friday",
		logger.Field{Key: "version", Value: version.Version},
		logger.Field{Key: "git_commit", Value: version.GitCommit},
		logger.Field{Key: "config", Value: cfg.Path()},
		logger.Field{Key: "homedir", Value: cfg.Homedir},
		logger.Field{Key: "jobs_dir", Value: cfg.Jobs.Dir})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewPrometheus(metrics.DefaultNamespace, reg)

	d := newDaemon(cfg, log, rec)
	if err := d.loadJobs(); err != nil {
		return err
	}
	if d.scheduler.Len() == 0 {
		log.Info("no jobs found, exiting")
		fmt.Fprintln(out, "No jobs found, exiting")
		return nil
	}

	d.pool.Start()
	go d.logResults()

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Addr, metrics.NewRouter(reg, d.scheduler.Len), log)
		if err := srv.Start(ctx); err != nil {
			d.pool.Stop()
			return err
		}
		defer func() {
			if err := srv.Stop(context.Background()); err != nil {
				log.Error("failed to stop metrics server", err)
			}
		}()
	}

	err = d.scheduler.Run(ctx)

	log.Info("shutting down, cancelling running jobs")
	d.pool.Stop()
	d.scheduler.Wait()
	log.Info("friday stopped")
	return err
}
