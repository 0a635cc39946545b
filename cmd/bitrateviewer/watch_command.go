package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"bitrateviewer/internal/logging"
)

const defaultWatchSettle = 2 * time.Second

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var (
		opts   bitrateOptions
		settle time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Recompute bitrate whenever a file changes",
		Long: "Watch probes the file once and then again after every write, which is\n" +
			"useful while an encode is still producing output. Stop with Ctrl+C.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.resolve(cmd, ctx); err != nil {
				return err
			}
			if settle <= 0 {
				return fmt.Errorf("--settle must be positive")
			}
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve %s: %w", args[0], err)
			}
			p, err := ctx.newProber()
			if err != nil {
				return err
			}
			w := &fileWatcher{
				path:     path,
				settle:   settle,
				out:      cmd.OutOrStdout(),
				interval: opts.interval,
				analyze: func(c context.Context) (*analysis, error) {
					return p.analyze(c, path, opts.analysisOptions())
				},
				logger: logging.NewComponentLogger(ctx.loggerValue(), "watch"),
			}
			return w.run(cmd.Context())
		},
	}
	opts.register(cmd)
	cmd.Flags().DurationVar(&settle, "settle", defaultWatchSettle, "Quiet period after the last write before probing again")
	return cmd
}

type fileWatcher struct {
	path     string
	settle   time.Duration
	out      io.Writer
	interval float64
	analyze  func(context.Context) (*analysis, error)
	logger   *slog.Logger

	current *analysis
}

func (w *fileWatcher) run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not initialize filesystem watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	if err := w.refresh(ctx); err != nil {
		return err
	}

	timer := time.NewTimer(w.settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if w.current != nil {
				w.current.Series.Invalidate()
			}
			timer.Reset(w.settle)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", logging.Error(err))
		case <-timer.C:
			if err := w.refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.logger.Warn("probe failed, waiting for the next change",
					logging.String(logging.FieldFile, w.path),
					logging.Error(err),
				)
			}
		}
	}
}

// refresh probes the file again and swaps the new packets into the existing
// series so earlier results are recomputed rather than rebuilt.
func (w *fileWatcher) refresh(ctx context.Context) error {
	next, err := w.analyze(ctx)
	if err != nil {
		return err
	}
	if w.current == nil {
		w.current = next
	} else {
		w.current.Container = next.Container
		w.current.Start = next.Start
		w.current.Series.Reset(next.Series.Packets())
	}
	report := newBitrateReport(w.current, w.interval, false)
	fmt.Fprintf(w.out, "%s  %s  packets=%s  average=%s  max=%s\n",
		time.Now().Format("15:04:05"),
		filepath.Base(report.Path),
		formatCount(report.Packets),
		formatKbps(derefNaN(report.Average)),
		formatKbps(derefNaN(report.Max)),
	)
	w.logger.Info("bitrate refreshed",
		logging.String(logging.FieldFile, w.path),
		logging.Int("packets", report.Packets),
	)
	return nil
}
