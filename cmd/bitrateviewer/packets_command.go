package main

import (
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"bitrateviewer/internal/media/ffprobe"
)

func newPacketsCommand(ctx *commandContext) *cobra.Command {
	var (
		format      string
		streamIndex int
	)

	cmd := &cobra.Command{
		Use:   "packets <file>",
		Short: "List the packets of one video stream in decoding order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := parseOutputFormat(format, formatCSV, formatTable, formatJSON, formatYAML)
			if err != nil {
				return err
			}
			if streamIndex < 0 {
				return fmt.Errorf("--stream must be zero or positive")
			}
			p, err := ctx.newProber()
			if err != nil {
				return err
			}
			packets, err := p.packets(cmd.Context(), args[0], streamIndex, 0)
			if err != nil {
				return err
			}

			switch outFormat {
			case formatJSON, formatYAML:
				if packets == nil {
					packets = []ffprobe.Packet{}
				}
				return writeStructured(cmd, outFormat, packets)
			case formatTable:
				fmt.Fprintln(cmd.OutOrStdout(), renderPacketTable(packets))
				return nil
			default:
				return writePacketCSV(cmd, packets)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Output format (csv, table, json, yaml)")
	cmd.Flags().IntVarP(&streamIndex, "stream", "s", 0, "Video stream number (v:N)")
	return cmd
}

func packetRow(seq int, p ffprobe.Packet) []string {
	return []string{
		strconv.Itoa(seq),
		optionalNumber(p.PTSTime),
		optionalNumber(p.DTSTime),
		optionalNumber(p.DurationTime),
		optionalInt(p.Size),
		p.Flags,
	}
}

var packetHeaders = []string{"seq", "pts_time", "dts_time", "duration_time", "size", "flags"}

func writePacketCSV(cmd *cobra.Command, packets []ffprobe.Packet) error {
	w := csv.NewWriter(cmd.OutOrStdout())
	if err := w.Write(packetHeaders); err != nil {
		return err
	}
	for i, p := range packets {
		if err := w.Write(packetRow(i, p)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func renderPacketTable(packets []ffprobe.Packet) string {
	rows := make([][]string, len(packets))
	for i, p := range packets {
		rows[i] = packetRow(i, p)
	}
	cols := make([]column, len(packetHeaders))
	for i, title := range packetHeaders {
		cols[i] = right(title)
	}
	cols[len(cols)-1] = left("flags")
	return renderTable(cols, rows)
}
