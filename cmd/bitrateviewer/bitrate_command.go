package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"bitrateviewer/internal/bitrate"
)

type bitrateOptions struct {
	streamIndex     int
	interval        float64
	startAdjustment float64
	startSet        bool
}

func (o *bitrateOptions) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&o.streamIndex, "stream", "s", 0, "Video stream number (v:N)")
	cmd.Flags().Float64VarP(&o.interval, "interval", "i", 0, "Aggregation interval in seconds (default from config)")
	cmd.Flags().Float64Var(&o.startAdjustment, "start-time-adjustment", 0, "Seconds subtracted from packet timestamps (default: container start time)")
}

// resolve fills unset values from the configuration.
func (o *bitrateOptions) resolve(cmd *cobra.Command, ctx *commandContext) error {
	cfg := ctx.configValue()
	if o.streamIndex < 0 {
		return fmt.Errorf("--stream must be zero or positive")
	}
	if !cmd.Flags().Changed("interval") {
		o.interval = cfg.Bitrate.IntervalSeconds
	}
	if o.interval <= 0 {
		return fmt.Errorf("--interval must be positive")
	}
	switch {
	case cmd.Flags().Changed("start-time-adjustment"):
		o.startSet = true
	case cfg.Bitrate.StartTimeAdjustment != nil:
		o.startAdjustment = *cfg.Bitrate.StartTimeAdjustment
		o.startSet = true
	}
	return nil
}

func (o *bitrateOptions) analysisOptions() analysisOptions {
	opts := analysisOptions{streamIndex: o.streamIndex}
	if o.startSet {
		start := o.startAdjustment
		opts.start = &start
	}
	return opts
}

func analyzeFiles(cmd *cobra.Command, ctx *commandContext, paths []string, opts analysisOptions) ([]fileResult[*analysis], error) {
	p, err := ctx.newProber()
	if err != nil {
		return nil, err
	}
	cfg := ctx.configValue()
	return forEachFile(cmd.Context(), paths, cfg.Probe.Parallelism, cmd.ErrOrStderr(),
		func(c context.Context, path string) (*analysis, error) {
			return p.analyze(c, path, opts)
		},
	), nil
}

type bitrateReport struct {
	Path      string             `json:"path"`
	Stream    int                `json:"stream"`
	Video     string             `json:"video,omitempty"`
	Packets   int                `json:"packets"`
	Interval  float64            `json:"interval_seconds"`
	StartTime float64            `json:"start_time"`
	Average   *float64           `json:"average_bps"`
	Max       *float64           `json:"max_bps"`
	Intervals []bitrate.Interval `json:"intervals,omitempty"`
	Error     string             `json:"error,omitempty"`
}

func newBitrateReport(a *analysis, interval float64, withIntervals bool) bitrateReport {
	report := bitrateReport{
		Path:      a.Path,
		Stream:    a.StreamIndex,
		Packets:   a.Series.Len(),
		Interval:  interval,
		StartTime: a.Start,
		Average:   jsonFloat(a.Series.Average(a.Start)),
		Max:       jsonFloat(a.Series.Max(interval, a.Start)),
	}
	if video, ok := a.Container.VideoByIndex(a.StreamIndex); ok {
		report.Video = video.ShortDescription()
	}
	if withIntervals {
		report.Intervals = a.Series.Intervals(interval, a.Start)
	}
	return report
}

func newBitrateCommand(ctx *commandContext) *cobra.Command {
	var (
		opts          bitrateOptions
		format        string
		showIntervals bool
	)

	cmd := &cobra.Command{
		Use:   "bitrate <file>...",
		Short: "Compute average and peak video bitrate",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := parseOutputFormat(format, formatTable, formatJSON, formatYAML)
			if err != nil {
				return err
			}
			if err := opts.resolve(cmd, ctx); err != nil {
				return err
			}
			results, err := analyzeFiles(cmd, ctx, args, opts.analysisOptions())
			if err != nil {
				return err
			}

			reports := make([]bitrateReport, len(results))
			var firstErr error
			for i, res := range results {
				if res.Err != nil {
					reports[i] = bitrateReport{Path: res.Path, Stream: opts.streamIndex, Error: res.Err.Error()}
					if firstErr == nil {
						firstErr = res.Err
					}
					continue
				}
				reports[i] = newBitrateReport(res.Value, opts.interval, showIntervals)
			}

			if outFormat != formatTable {
				if err := writeStructured(cmd, outFormat, reports); err != nil {
					return err
				}
				return firstErr
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderBitrateSummary(reports))
			if showIntervals {
				for _, report := range reports {
					if report.Error != "" {
						continue
					}
					fmt.Fprintln(out, filepath.Base(report.Path))
					fmt.Fprintln(out, renderIntervals(report.Intervals))
				}
			}
			return firstErr
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json, yaml)")
	cmd.Flags().BoolVar(&showIntervals, "intervals", false, "Include per-interval bitrates")
	return cmd
}

func renderBitrateSummary(reports []bitrateReport) string {
	cols := []column{left("File"), left("Video"), right("Packets"), right("Average"), right("Max")}
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		if r.Error != "" {
			rows = append(rows, []string{filepath.Base(r.Path), "error: " + r.Error, "", "", ""})
			continue
		}
		rows = append(rows, []string{
			filepath.Base(r.Path),
			r.Video,
			formatCount(r.Packets),
			formatKbps(derefNaN(r.Average)),
			formatKbps(derefNaN(r.Max)),
		})
	}
	return renderTable(cols, rows)
}

func renderIntervals(intervals []bitrate.Interval) string {
	cols := []column{right("Start"), right("Bit rate"), right("Packets")}
	rows := make([][]string, len(intervals))
	for i, iv := range intervals {
		rows[i] = []string{formatClock(iv.Start), formatKbps(iv.BitsPerSecond), strconv.Itoa(iv.Packets)}
	}
	return renderTable(cols, rows)
}
