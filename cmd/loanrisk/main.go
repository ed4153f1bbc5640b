package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/kari1998/loan-default-prediction/pkg/config"
	"github.com/kari1998/loan-default-prediction/pkg/log"
	"github.com/kari1998/loan-default-prediction/stages"
	"github.com/kari1998/loan-default-prediction/store"
)

const configEnvVar = "LOANRISK_CONFIG"

var (
	name    = "loanrisk"
	version = "v0.0.1-default"
	commit  = ""
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp(os.Stdout).Run(ctx, os.Args); err != nil {
		log.LogError(err, "loanrisk failed")
		stop()
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.Command {
	var cfg *config.Config

	configFlag := &cli.StringFlag{
		Name:    "config",
		Usage:   "path to the YAML configuration (optional, defaults apply for missing fields)",
		Sources: cli.EnvVars(configEnvVar),
	}
	logLevelFlag := &cli.StringFlag{
		Name:  "log-level",
		Usage: "debug, info, warn or error (overrides the configuration)",
	}
	seedFlag := &cli.Uint64Flag{
		Name:  "seed",
		Usage: "random seed for generation, splits and models (overrides the configuration)",
	}

	commands := make([]*cli.Command, 0, len(stages.All())+3)
	for _, s := range stages.All() {
		commands = append(commands, &cli.Command{
			Name:  s.Name,
			Usage: s.Usage,
			Action: func(ctx context.Context, _ *cli.Command) error {
				return stages.Run(ctx, s, cfg, out)
			},
		})
	}
	commands = append(commands,
		&cli.Command{
			Name:  "run",
			Usage: "run every stage in order",
			Action: func(ctx context.Context, _ *cli.Command) error {
				return stages.RunAll(ctx, cfg, out)
			},
		},
		historyCmd(out, func() *config.Config { return cfg }),
		initCmd(out, func() *config.Config { return cfg }),
	)

	return &cli.Command{
		Name:    name,
		Version: fmt.Sprintf("%s - (commit: %s)", version, commit),
		Usage:   "loan default risk pipeline",
		Flags:   []cli.Flag{configFlag, logLevelFlag, seedFlag},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			c, err := config.Load(cmd.String(configFlag.Name))
			if err != nil {
				return ctx, err
			}
			if cmd.IsSet(logLevelFlag.Name) {
				c.LogLevel = cmd.String(logLevelFlag.Name)
			}
			if cmd.IsSet(seedFlag.Name) {
				c.Seed = cmd.Uint64(seedFlag.Name)
			}
			log.SetupLogger(c.LogLevel)
			cfg = c
			return ctx, nil
		},
		Commands: commands,
	}
}

func historyCmd(out io.Writer, cfg func() *config.Config) *cli.Command {
	limitFlag := &cli.IntFlag{
		Name:  "limit",
		Usage: "number of rows to show (0 shows all)",
		Value: 20,
	}
	return &cli.Command{
		Name:  "history",
		Usage: "list recorded evaluation runs, newest first",
		Flags: []cli.Flag{limitFlag},
		Action: func(ctx context.Context, cmd *cli.Command) (err error) {
			s, err := store.Open(ctx, cfg().Store.Path)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := s.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()
			runs, err := s.ListRuns(ctx, cmd.Int(limitFlag.Name))
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tCREATED\tMODEL\tACCURACY\tPRECISION\tRECALL\tF1\tAUC")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\n",
					r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Model,
					r.Accuracy, r.Precision, r.Recall, r.F1, r.AUC)
			}
			return tw.Flush()
		},
	}
}

func initCmd(out io.Writer, cfg func() *config.Config) *cli.Command {
	outFlag := &cli.StringFlag{
		Name:  "out",
		Usage: "where to write the configuration",
		Value: "loanrisk.yaml",
	}
	return &cli.Command{
		Name:  "init",
		Usage: "write the effective configuration as YAML",
		Flags: []cli.Flag{outFlag},
		Action: func(_ context.Context, cmd *cli.Command) error {
			path := cmd.String(outFlag.Name)
			if err := config.Save(path, cfg()); err != nil {
				return err
			}
			fmt.Fprintf(out, "Configuration written to %s\n", path)
			return nil
		},
	}
}
