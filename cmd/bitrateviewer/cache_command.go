package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"bitrateviewer/internal/probecache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the probe cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

// openCache returns nil without an error when caching is disabled.
func openCache(cmd *cobra.Command, ctx *commandContext) (*probecache.Cache, error) {
	cache, err := ctx.probeCache()
	if err != nil {
		return nil, fmt.Errorf("open probe cache: %w", err)
	}
	if cache == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Probe cache is disabled")
	}
	return cache, nil
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show probe cache usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openCache(cmd, ctx)
			if err != nil || cache == nil {
				return err
			}
			files, packets, err := cache.Stats(cmd.Context())
			if err != nil {
				return err
			}
			size := "-"
			if info, err := os.Stat(cache.Path()); err == nil {
				size = humanize.IBytes(uint64(info.Size()))
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues("Probe cache", [][2]string{
				{"database", cache.Path()},
				{"files", humanize.Comma(files)},
				{"packets", humanize.Comma(packets)},
				{"size", size},
			}))
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached probe result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openCache(cmd, ctx)
			if err != nil || cache == nil {
				return err
			}
			removed, err := cache.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s cached file(s)\n", humanize.Comma(removed))
			return nil
		},
	}
}
