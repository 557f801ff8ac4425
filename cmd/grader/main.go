package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/programme-lv/autograder/internal/environment"
	"github.com/urfave/cli/v3"
)

func main() {
	env, err := environment.ReadEnvConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(env).Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(env *environment.EnvConfig) *cli.Command {
	logLevel := env.LogLevel
	if logLevel == "" {
		logLevel = "info"
	}
	return &cli.Command{
		Name:  "grader",
		Usage: "grade batches of student submissions against a reference solution",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
				Value: logLevel,
			},
		},
		Commands: []*cli.Command{
			newGradeCmd(env),
			newValidateCmd(),
			newBehaveCmd(),
		},
	}
}

func newLogger(cmd *cli.Command) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cmd.String("log-level")))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", cmd.String("log-level"))
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})), nil
}
