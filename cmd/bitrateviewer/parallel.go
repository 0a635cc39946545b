package main

import (
	"context"
	"io"
	"path/filepath"
	"sync"

	"github.com/schollz/progressbar/v3"
)

type fileResult[T any] struct {
	Path  string
	Value T
	Err   error
}

// forEachFile runs fn for every path with at most parallelism calls in
// flight and returns the results in input order. When progress is a terminal
// and there is more than one file a progress bar is drawn on it.
func forEachFile[T any](ctx context.Context, paths []string, parallelism int, progress io.Writer, fn func(context.Context, string) (T, error)) []fileResult[T] {
	if parallelism < 1 {
		parallelism = 1
	}
	results := make([]fileResult[T], len(paths))
	bar := newFileProgress(progress, len(paths))

	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup
	for i, path := range paths {
		results[i].Path = path
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			results[i].Err = ctx.Err()
			continue
		}
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i].Value, results[i].Err = fn(ctx, path)
			bar.done(filepath.Base(path))
		}(i, path)
	}
	wg.Wait()
	bar.finish()
	return results
}

type fileProgress struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newFileProgress(w io.Writer, total int) *fileProgress {
	if total < 2 || !shouldColorize(w) {
		return &fileProgress{}
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("probing"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return &fileProgress{bar: bar}
}

func (p *fileProgress) done(name string) {
	if p.bar == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bar.Describe(name)
	_ = p.bar.Add(1)
}

func (p *fileProgress) finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}
