package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/programme-lv/autograder/internal/environment"
	"github.com/programme-lv/autograder/internal/gatherer"
	"github.com/programme-lv/autograder/internal/gatherer/natsgath"
	"github.com/programme-lv/autograder/internal/gatherer/termgath"
	"github.com/programme-lv/autograder/internal/grader"
	"github.com/programme-lv/autograder/internal/gradespec"
	"github.com/programme-lv/autograder/internal/ledger"
	"github.com/programme-lv/autograder/internal/publish"
	"github.com/programme-lv/autograder/internal/publish/sqspub"
	"github.com/programme-lv/autograder/internal/source"
	"github.com/programme-lv/autograder/internal/source/dirsource"
	"github.com/programme-lv/autograder/internal/source/objsource"
	"github.com/programme-lv/autograder/internal/workspace"
	"github.com/programme-lv/autograder/internal/xdg"
	"github.com/urfave/cli/v3"
)

func newGradeCmd(env *environment.EnvConfig) *cli.Command {
	ledgerPath := env.LedgerPath
	if ledgerPath == "" {
		ledgerPath = xdg.NewXDGDirs().LedgerPath()
	}
	return &cli.Command{
		Name:  "grade",
		Usage: "grade every new or changed submission of an assignment",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "spec", Usage: "grading spec file (.json, .toml, .yaml)", Required: true},
			&cli.StringFlag{Name: "dir", Usage: "grading directory holding the submissions", Value: "."},
			&cli.BoolFlag{Name: "force-regrade", Aliases: []string{"force"}, Usage: "grade unchanged submissions too"},
			&cli.BoolFlag{Name: "debug", Usage: "grade without publishing"},
			&cli.IntFlag{Name: "workers", Usage: "submissions graded concurrently", Value: 1},
			&cli.StringFlag{Name: "ledger", Usage: "graded-submission ledger database", Value: ledgerPath},
			&cli.StringFlag{Name: "source", Usage: "where submissions come from: dir or s3", Value: "dir"},
			&cli.BoolFlag{Name: "publish", Usage: "publish grades to the SQS queue in GRADER_SQS_URL"},
			&cli.BoolFlag{Name: "nats", Usage: "stream grading events to GRADER_NATS_URL"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "print compiler output of failed builds"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log, err := newLogger(cmd)
			if err != nil {
				return err
			}

			spec, err := gradespec.Load(cmd.String("spec"))
			if err != nil {
				return err
			}

			dir := cmd.String("dir")
			ws, err := workspace.New(dir, log)
			if err != nil {
				return err
			}

			l, err := ledger.Open(cmd.String("ledger"))
			if err != nil {
				return err
			}
			defer l.Close()

			src, err := newSource(cmd.String("source"), env, ws.Root(), spec.AssignmentID, l, log)
			if err != nil {
				return err
			}

			gaths := gatherer.Multi{termgath.NewWriter(cmd.Root().Writer, cmd.Bool("verbose"))}
			if cmd.Bool("nats") {
				if env.NatsURL == "" {
					return fmt.Errorf("--nats needs GRADER_NATS_URL")
				}
				conn, err := natsgath.Connect(env.NatsURL)
				if err != nil {
					return err
				}
				defer conn.Drain()
				gaths = append(gaths, natsgath.New(conn, env.NatsSubject, log))
			}

			var pub publish.Publisher
			if cmd.Bool("publish") {
				pub, err = sqspub.Connect(ctx, env.SqsURL, env.AwsRegion, log)
				if err != nil {
					return err
				}
			}

			g, err := grader.New(grader.Config{
				Spec:         spec,
				Workspace:    ws,
				Source:       src,
				Publisher:    pub,
				Gatherer:     gaths,
				Logger:       log,
				Workers:      int(cmd.Int("workers")),
				ForceRegrade: cmd.Bool("force-regrade"),
				Debug:        cmd.Bool("debug"),
			})
			if err != nil {
				return err
			}
			_, err = g.Run(ctx)
			return err
		},
	}
}

// newSource reads dir for "dir". For "s3" objects are downloaded into the
// user cache so the grading directory only holds working directories.
func newSource(kind string, env *environment.EnvConfig, dir, assignmentID string, l *ledger.Ledger, log *slog.Logger) (source.Source, error) {
	switch kind {
	case "dir":
		return dirsource.New(dir, l), nil
	case "s3":
		cfg := objsource.Config{
			Endpoint:  env.S3Endpoint,
			AccessKey: env.S3AccessKey,
			SecretKey: env.S3SecretKey,
			UseSSL:    env.S3UseSSL,
			Bucket:    env.S3Bucket,
			Prefix:    env.S3Prefix,
		}
		client, err := objsource.Dial(cfg)
		if err != nil {
			return nil, err
		}
		return objsource.New(client, cfg, xdg.NewXDGDirs().DownloadDir(assignmentID), l, log), nil
	}
	return nil, fmt.Errorf("unknown source %q (want dir or s3)", kind)
}
