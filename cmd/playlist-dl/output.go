package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/handiism/playlist-album/internal/download"
	"github.com/handiism/playlist-album/internal/model"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/k0kubun/go-ansi"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

var (
	errorColor   = color.New(color.FgRed)
	warningColor = color.New(color.FgYellow)
	successColor = color.New(color.FgGreen)
	infoColor    = color.New(color.FgCyan)
)

// printer renders progress events. On a terminal the track loop also gets a
// progress bar; events are printed above it.
type printer struct {
	out     io.Writer
	verbose bool
	bar     *progressbar.ProgressBar
}

func newPrinter(out io.Writer, verbose bool) *printer {
	return &printer{out: out, verbose: verbose}
}

func (p *printer) start(total int) {
	if !isTerminal(p.out) {
		return
	}
	var w io.Writer = p.out
	if p.out == os.Stdout {
		w = ansi.NewAnsiStdout()
	}
	p.bar = progressbar.NewOptions(
		total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionFullWidth(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Tracks[reset]"),
	)
}

func (p *printer) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		fmt.Fprintln(p.out)
		p.bar = nil
	}
}

// handle is the pipeline progress callback; the pipeline serializes calls.
func (p *printer) handle(event download.ProgressEvent) {
	if event.Level == download.LevelVerbose && !p.verbose {
		if event.TrackDone && p.bar != nil {
			_ = p.bar.Add(1)
		}
		return
	}

	if p.bar != nil {
		_ = p.bar.Clear()
	}
	fmt.Fprintln(p.out, levelPrefix(event.Level)+event.Message)
	if p.bar != nil {
		if event.TrackDone {
			_ = p.bar.Add(1)
		} else {
			_ = p.bar.RenderBlank()
		}
	}
}

func levelPrefix(level download.ProgressLevel) string {
	switch level {
	case download.LevelError:
		return errorColor.Sprint("✗ ")
	case download.LevelWarning:
		return warningColor.Sprint("! ")
	case download.LevelSuccess:
		return successColor.Sprint("✓ ")
	case download.LevelInfo:
		return infoColor.Sprint("› ")
	default:
		return "  "
	}
}

// isTerminal reports whether v is a file descriptor attached to a terminal.
func isTerminal(v any) bool {
	f, ok := v.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// renderTracks lists the display titles in output order with their lengths
// and a total in the footer.
func renderTracks(titles []string, playlist *model.Playlist) string {
	refs := append([]*model.TrackRef(nil), playlist.Entries...)
	model.SortEntries(refs)

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Title", "Length"})

	var total float64
	for i, t := range titles {
		length := ""
		if i < len(refs) && refs[i].Duration > 0 {
			length = formatDuration(refs[i].Duration)
			total += refs[i].Duration
		}
		tw.AppendRow(table.Row{i + 1, t, length})
	}

	footer := ""
	if total > 0 {
		footer = formatDuration(total)
	}
	tw.AppendFooter(table.Row{"", fmt.Sprintf("%d tracks", len(titles)), footer})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	return tw.Render()
}

// renderPlan shows the decided album fields as a two-column sheet.
func renderPlan(plan *download.Plan) string {
	album := plan.Album
	cover := plan.Cover.URL
	if cover == "" {
		cover = fmt.Sprintf("track %d thumbnail", plan.Cover.TrackIndex)
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("Album")
	tw.AppendRows([]table.Row{
		{"Artist", album.Artist},
		{"Title", album.Title},
		{"Year", album.Year},
		{"Tracks", len(album.Tracks)},
		{"Cover", cover},
		{"Folder", album.Path},
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: text.Colors{text.Bold}},
	})
	return tw.Render()
}

func formatDuration(seconds float64) string {
	s := int(seconds + 0.5)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
