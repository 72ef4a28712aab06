// Package statusreport renders cache state as a human-readable table for
// terminal output.
package statusreport

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"vidkit/internal/cache"
)

// Render writes a per-segment cache status table in timeline order.
func Render(w io.Writer, ids []string, statuses map[string]cache.Status, mode, engine string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("Segment cache (%s, %s narration)", mode, engine))
	t.AppendHeader(table.Row{"Segment", "Video", "Narrated"})
	built, total := 0, 0
	for _, id := range ids {
		s := statuses[id]
		t.AppendRow(table.Row{id, mark(s.Segment), mark(s.Combined)})
		total++
		if s.Combined {
			built++
		}
	}
	t.AppendFooter(table.Row{"ready", "", fmt.Sprintf("%d/%d", built, total)})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignCenter},
		{Number: 3, Align: text.AlignCenter, AlignFooter: text.AlignCenter},
	})
	t.SetStyle(table.StyleLight)
	t.Render()
}

// RenderStats writes cache layer usage alongside free disk space.
func RenderStats(w io.Writer, stats cache.Stats) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Layer", "Entries", "Size"})
	t.AppendRows([]table.Row{
		{"generated", stats.Generated.Entries, humanBytes(stats.Generated.TotalBytes)},
		{"narration", stats.TTS.Entries, humanBytes(stats.TTS.TotalBytes)},
		{"segments", stats.Segments.Entries, humanBytes(stats.Segments.TotalBytes)},
		{"combined", stats.Combined.Entries, humanBytes(stats.Combined.TotalBytes)},
	})
	t.AppendFooter(table.Row{"free disk", "", humanize.IBytes(stats.FreeBytes)})
	t.SetStyle(table.StyleLight)
	t.Render()
}

func mark(ok bool) string {
	if ok {
		return "yes"
	}
	return "-"
}

func humanBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
