package main

import (
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"bitrateviewer/internal/bitrate"
)

type plotSeries struct {
	Path   string          `json:"path"`
	View   string          `json:"view"`
	Title  string          `json:"title"`
	Unit   string          `json:"unit"`
	Max    *float64        `json:"max_y,omitempty"`
	Points []bitrate.Point `json:"points"`
	Error  string          `json:"error,omitempty"`
}

func newPlotCommand(ctx *commandContext) *cobra.Command {
	var (
		opts   bitrateOptions
		format string
		view   string
	)

	cmd := &cobra.Command{
		Use:   "plot <file>...",
		Short: "Emit plot data (frame sizes or per-second bitrate)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := parseOutputFormat(format, formatCSV, formatJSON, formatYAML)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("view") {
				view = ctx.configValue().Bitrate.PlotView
			}
			plotView, err := bitrate.ParsePlotView(view)
			if err != nil {
				return err
			}
			if plotView == bitrate.PlotGOP {
				return fmt.Errorf("plot view %q: %w", plotView, bitrate.ErrUnsupportedPlotView)
			}
			if err := opts.resolve(cmd, ctx); err != nil {
				return err
			}
			results, err := analyzeFiles(cmd, ctx, args, opts.analysisOptions())
			if err != nil {
				return err
			}

			series := make([]plotSeries, len(results))
			var firstErr error
			for i, res := range results {
				series[i] = plotSeries{
					Path:  res.Path,
					View:  string(plotView),
					Title: plotView.Title(),
					Unit:  plotView.Unit(),
				}
				if res.Err == nil {
					series[i].Points, res.Err = res.Value.Series.PlotPoints(plotView, opts.interval, res.Value.Start)
				}
				if res.Err != nil {
					series[i].Error = res.Err.Error()
					if firstErr == nil {
						firstErr = res.Err
					}
					continue
				}
				series[i].Max = jsonFloat(maxY(series[i].Points))
			}

			if outFormat == formatCSV {
				if err := writePlotCSV(cmd, series); err != nil {
					return err
				}
				return firstErr
			}
			if err := writeStructured(cmd, outFormat, series); err != nil {
				return err
			}
			return firstErr
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Output format (csv, json, yaml)")
	cmd.Flags().StringVar(&view, "view", "", "Plot view: frame or second (default from config)")
	return cmd
}

func maxY(points []bitrate.Point) float64 {
	if len(points) == 0 {
		return 0
	}
	peak := points[0].Y
	for _, p := range points[1:] {
		peak = max(peak, p.Y)
	}
	return peak
}

func writePlotCSV(cmd *cobra.Command, series []plotSeries) error {
	w := csv.NewWriter(cmd.OutOrStdout())
	if err := w.Write([]string{"file", "seconds", "value", "unit"}); err != nil {
		return err
	}
	for _, s := range series {
		for _, p := range s.Points {
			record := []string{
				s.Path,
				strconv.FormatFloat(p.X, 'f', 6, 64),
				strconv.FormatFloat(p.Y, 'f', 3, 64),
				s.Unit,
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}
