package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bitrateviewer/internal/bitrate"
	"bitrateviewer/internal/logging"
	"bitrateviewer/internal/media/ffprobe"
	"bitrateviewer/internal/media/model"
	"bitrateviewer/internal/probecache"
)

// prober fronts the ffprobe client with the probe cache.
type prober struct {
	client   *ffprobe.Client
	cache    *probecache.Cache
	logger   *slog.Logger
	timeout  time.Duration
	progress *logging.ProgressSampler
}

func (c *commandContext) newProber() (*prober, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.NewComponentLogger(c.loggerValue(), "probe")
	cache, err := c.probeCache()
	if err != nil {
		logger.Warn("probe cache unavailable, continuing without it", logging.Error(err))
		cache = nil
	}
	return &prober{
		client:   c.probeClient(),
		cache:    cache,
		logger:   logger,
		timeout:  time.Duration(cfg.Probe.TimeoutSeconds) * time.Second,
		progress: logging.NewProgressSampler(10),
	}, nil
}

func (p *prober) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

// metadata returns the container metadata of path, from the cache when the
// file is unchanged.
func (p *prober) metadata(ctx context.Context, path string) (*model.Container, error) {
	key, err := probecache.KeyFor(path)
	if err != nil {
		return nil, err
	}
	if p.cache != nil {
		data, ok, err := p.cache.LoadMetadata(ctx, key)
		if err != nil {
			p.logger.Warn("metadata cache read failed", logging.String(logging.FieldFile, path), logging.Error(err))
		} else if ok {
			container, parseErr := ffprobe.ParseContainer(data)
			if parseErr == nil {
				p.logger.Debug("metadata cache hit", logging.String(logging.FieldFile, path))
				return container, nil
			}
			p.logger.Warn("cached metadata unreadable, probing again", logging.String(logging.FieldFile, path), logging.Error(parseErr))
		}
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	data, err := p.client.MetadataJSON(ctx, key.Path)
	if err != nil {
		return nil, err
	}
	container, err := ffprobe.ParseContainer(data)
	if err != nil {
		return nil, fmt.Errorf("ffprobe metadata %s: %w", path, err)
	}
	if p.cache != nil {
		if err := p.cache.SaveMetadata(ctx, key, data); err != nil {
			p.logger.Warn("metadata cache write failed", logging.String(logging.FieldFile, path), logging.Error(err))
		}
	}
	return container, nil
}

// packets returns every packet of the streamIndex-th video stream. duration
// is only used for progress logging and may be zero.
func (p *prober) packets(ctx context.Context, path string, streamIndex int, duration float64) ([]ffprobe.Packet, error) {
	key, err := probecache.KeyFor(path)
	if err != nil {
		return nil, err
	}
	if p.cache != nil {
		cached, ok, err := p.cache.LoadPackets(ctx, key, streamIndex)
		if err != nil {
			p.logger.Warn("packet cache read failed", logging.String(logging.FieldFile, path), logging.Error(err))
		} else if ok {
			p.logger.Debug("packet cache hit",
				logging.String(logging.FieldFile, path),
				logging.Int("packets", len(cached)),
			)
			return cached, nil
		}
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	defer p.progress.Forget(path)
	started := time.Now()
	stream, errs := p.client.Packets(ctx, key.Path, streamIndex)
	var collected []ffprobe.Packet
	for packet := range stream {
		collected = append(collected, packet)
		if duration > 0 && packet.PTSTime != nil {
			percent := *packet.PTSTime / duration * 100
			if p.progress.ShouldLog(path, percent) {
				p.logger.Info("scanning packets",
					logging.String(logging.FieldFile, path),
					logging.Float64("percent", float64(int(min(percent, 100)))),
					logging.Int("packets", len(collected)),
				)
			}
		}
	}
	if err := <-errs; err != nil {
		return collected, err
	}
	p.logger.Info("packets scanned",
		logging.String(logging.FieldFile, path),
		logging.Int("packets", len(collected)),
		logging.Duration("elapsed", time.Since(started)),
	)

	if p.cache != nil {
		if err := p.cache.SavePackets(ctx, key, streamIndex, collected); err != nil {
			p.logger.Warn("packet cache write failed", logging.String(logging.FieldFile, path), logging.Error(err))
		}
	}
	return collected, nil
}

// analysis is one probed file ready for bitrate queries.
type analysis struct {
	Path        string
	Container   *model.Container
	StreamIndex int
	Start       float64
	Series      *bitrate.Series
}

type analysisOptions struct {
	streamIndex int
	start       *float64
}

func (p *prober) analyze(ctx context.Context, path string, opts analysisOptions) (*analysis, error) {
	container, err := p.metadata(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(container.Video) == 0 {
		return nil, fmt.Errorf("%s: no video streams", path)
	}
	packets, err := p.packets(ctx, path, opts.streamIndex, container.DurationSeconds())
	if err != nil {
		return nil, err
	}

	start := container.StartSeconds()
	if opts.start != nil {
		start = *opts.start
	}
	return &analysis{
		Path:        path,
		Container:   container,
		StreamIndex: opts.streamIndex,
		Start:       start,
		Series:      bitrate.NewSeries(toBitratePackets(packets)),
	}, nil
}

func toBitratePackets(packets []ffprobe.Packet) []bitrate.Packet {
	out := make([]bitrate.Packet, len(packets))
	for i, p := range packets {
		out[i] = bitrate.NewPacket(p.PTSTime, p.DurationTime, p.Size, p.Flags)
	}
	return out
}
