package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bitrateviewer/internal/deps"
)

var errMissingDependencies = errors.New("required dependencies are missing")

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check that ffprobe and a launch shell are available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := []deps.Status{
				deps.CheckShell(),
				deps.CheckFFprobe(cmd.Context(), cfg.FFprobe.Binary, ctx.probeClient()),
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(out, line)
			}
			missing := false
			for _, status := range statuses {
				kind, message := dependencyLine(status)
				if kind == statusError {
					missing = true
				}
				fmt.Fprintln(out, renderStatusLine(status.Name, kind, message, colorize))
			}
			if missing {
				return errMissingDependencies
			}
			return nil
		},
	}
}

func dependencyLine(status deps.Status) (statusKind, string) {
	parts := make([]string, 0, 2)
	if status.Command != "" {
		parts = append(parts, status.Command)
	}
	if status.Detail != "" {
		parts = append(parts, "("+status.Detail+")")
	}
	message := strings.Join(parts, " ")
	switch {
	case status.Available:
		return statusOK, message
	case status.Optional:
		return statusWarn, message
	default:
		return statusError, message
	}
}
