package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/programme-lv/autograder/internal/gradespec"
	"github.com/programme-lv/autograder/internal/score"
	"github.com/urfave/cli/v3"
)

func newValidateCmd() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "check a grading spec and the artifacts it names",
		ArgsUsage: "<spec-file>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one spec file")
			}
			path := cmd.Args().First()
			spec, err := gradespec.Load(path)
			if err != nil {
				return err
			}
			if err := spec.CheckArtifacts(); err != nil {
				return err
			}

			w := cmd.Root().Writer
			fmt.Fprintf(w, "%s %s\n", color.GreenString("valid"), path)
			fmt.Fprintf(w, "  mode:          %s\n", spec.Mode)
			fmt.Fprintf(w, "  total points:  %s\n", score.Format(spec.TotalPoints))
			if spec.Mode != gradespec.ModeExternal {
				fmt.Fprintf(w, "  per line:      %s\n", score.Format(spec.PointsPerLine))
			}
			fmt.Fprintf(w, "  timeout:       %s\n", spec.Timeout)
			fmt.Fprintf(w, "  artifacts:     %s\n", strings.Join(spec.SharedArtifacts(), ", "))
			return nil
		},
	}
}
