package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"bitrateviewer/internal/media/model"
)

type infoReport struct {
	Path      string           `json:"path"`
	Container *model.Container `json:"container,omitempty"`
	Error     string           `json:"error,omitempty"`
}

func newInfoCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "info <file>...",
		Short: "Show container and stream metadata",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := parseOutputFormat(format, formatTable, formatJSON, formatYAML)
			if err != nil {
				return err
			}
			p, err := ctx.newProber()
			if err != nil {
				return err
			}
			cfg := ctx.configValue()

			results := forEachFile(cmd.Context(), args, cfg.Probe.Parallelism, cmd.ErrOrStderr(), p.metadata)
			reports := make([]infoReport, len(results))
			var firstErr error
			for i, res := range results {
				reports[i] = infoReport{Path: res.Path, Container: res.Value}
				if res.Err != nil {
					reports[i].Error = res.Err.Error()
					if firstErr == nil {
						firstErr = res.Err
					}
				}
			}

			if outFormat != formatTable {
				if err := writeStructured(cmd, outFormat, reports); err != nil {
					return err
				}
				return firstErr
			}
			out := cmd.OutOrStdout()
			for _, report := range reports {
				if report.Error != "" {
					fmt.Fprintf(out, "%s: %s\n", report.Path, report.Error)
					continue
				}
				fmt.Fprintln(out, renderContainer(report.Path, report.Container))
				fmt.Fprintln(out, renderStreams(report.Container))
			}
			return firstErr
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json, yaml)")
	return cmd
}

func renderContainer(path string, c *model.Container) string {
	streams := strconv.Itoa(len(c.Streams))
	if c.StreamCount != nil {
		streams = strconv.Itoa(*c.StreamCount)
	}
	bitRate := "-"
	if c.BitRate != nil {
		bitRate = formatKbps(float64(*c.BitRate))
	}
	return renderKeyValues(path, [][2]string{
		{"Format", c.FormatName},
		{"Duration", formatSeconds(c.Duration)},
		{"Start time", formatSeconds(c.StartTime)},
		{"Size", formatBytes(c.Size)},
		{"Bit rate", bitRate},
		{"Streams", streams},
	})
}

func renderStreams(c *model.Container) string {
	cols := []column{right("#"), left("Type"), left("Codec"), left("Details"), right("Duration")}
	var rows [][]string
	for _, v := range c.Video {
		rows = append(rows, []string{strconv.Itoa(v.Index), string(v.Kind), v.CodecName, v.ShortDescription(), formatSeconds(v.Duration)})
	}
	for _, a := range c.Audio {
		rows = append(rows, []string{strconv.Itoa(a.Index), string(a.Kind), a.CodecName, a.Description(), formatSeconds(a.Duration)})
	}
	for _, s := range c.Subtitle {
		rows = append(rows, []string{strconv.Itoa(s.Index), string(s.Kind), s.CodecName, "", formatSeconds(s.Duration)})
	}
	return renderTable(cols, rows)
}
