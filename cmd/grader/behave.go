package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/programme-lv/autograder/internal/behave"
	"github.com/urfave/cli/v3"
)

func newBehaveCmd() *cli.Command {
	return &cli.Command{
		Name:      "behave",
		Usage:     "run end-to-end grading scenarios from TOML files",
		ArgsUsage: "<scenario-file>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "keep", Usage: "keep scenario working directories"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() == 0 {
				return fmt.Errorf("expected at least one scenario file")
			}
			log, err := newLogger(cmd)
			if err != nil {
				return err
			}

			w := cmd.Root().Writer
			failed := 0
			for _, path := range cmd.Args().Slice() {
				cases, err := behave.Parse(path)
				if err != nil {
					return err
				}
				for _, c := range cases {
					workDir, err := os.MkdirTemp("", "grader-behave-*")
					if err != nil {
						return fmt.Errorf("failed to create scenario directory: %w", err)
					}
					res, err := behave.Run(ctx, c, workDir, nil, log)
					if !cmd.Bool("keep") {
						os.RemoveAll(workDir)
					}
					if err != nil {
						return fmt.Errorf("%s: %w", c.Name, err)
					}

					if res.Passed() {
						fmt.Fprintf(w, "%s %s\n", color.GreenString("PASS"), c.Name)
						continue
					}
					failed++
					fmt.Fprintf(w, "%s %s\n", color.RedString("FAIL"), c.Name)
					for _, f := range res.Failures {
						fmt.Fprintf(w, "     %s\n", f)
					}
					if cmd.Bool("keep") {
						fmt.Fprintf(w, "     kept %s\n", workDir)
					}
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d scenario(s) failed", failed)
			}
			return nil
		},
	}
}
