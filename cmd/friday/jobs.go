package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/aatumaykin/friday/internal/cron"
	"github.com/aatumaykin/friday/internal/job"
	"github.com/aatumaykin/friday/internal/logger"
	"github.com/aatumaykin/friday/internal/metrics"
	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and run jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the scheduled jobs",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runJobsList(configDir, cmd.OutOrStdout()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var jobsRunCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Run a job once, now",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := runJobsRun(ctx, configDir, args[0], debug, cmd.OutOrStdout()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsRunCmd)
}

func runJobsList(dir string, out io.Writer) error {
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}

	defs, skipped, err := job.LoadDir(cfg.Jobs.Dir)
	if err != nil {
		return err
	}

	now := time.Now()
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSCHEDULE\tSTEPS\tNEXT")
	for _, def := range defs {
		next := "invalid schedule"
		if schedule, err := cron.ParseSchedule(def.Schedule); err == nil {
			next = schedule.Next(now).Format(time.RFC3339)
		} else {
			skipped = append(skipped, fmt.Errorf("%w: %s: %v", job.ErrLoad, def.Source, err))
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", def.Name, def.Schedule, len(def.Steps), next)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, e := range skipped {
		fmt.Fprintf(out, "skipped: %v\n", e)
	}
	return nil
}

// runJobsRun fires one job through the same pool the daemon uses and waits
// for it. An aborted run is reported as an error.
func runJobsRun(ctx context.Context, dir, name string, debug bool, out io.Writer) error {
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, debug)
	if err != nil {
		return err
	}
	defer log.Close()

	cfg.Workers.PoolSize = 1
	d := newDaemon(cfg, log, metrics.Nop{})
	if err := d.loadJobs(); err != nil {
		return err
	}

	d.pool.Start()
	defer d.pool.Stop()

	if err := d.scheduler.RunNow(name); err != nil {
		return err
	}

	select {
	case r := <-d.pool.Results():
		d.scheduler.Wait()
		fmt.Fprintf(out, "run directory: %s\n", r.Output)
		if r.Error != nil {
			log.Error("job run failed", r.Error, logger.Field{Key: "job", Value: name})
			return r.Error
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
