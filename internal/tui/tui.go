// Package tui provides a Bubble Tea terminal user interface for playlist-dl.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/handiism/playlist-album/internal/config"
	"github.com/handiism/playlist-album/internal/download"
	"github.com/handiism/playlist-album/internal/model"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	trackStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

// maxLogs is how many progress lines stay on screen.
const maxLogs = 10

// State represents the current UI state.
type State int

const (
	StateURL State = iota
	StateResolving
	StateArtist
	StateYear
	StateAlbum
	StateRenameSelect
	StateRenameTitle
	StateCover
	StateDownloading
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// PipelineFactory builds the pipeline for one run.
type PipelineFactory func(settings *config.Settings, onProgress func(download.ProgressEvent)) *download.Pipeline

// session is the state of one URL's run, dropped on reset.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
	events chan download.ProgressEvent

	pipeline *download.Pipeline
	playlist *model.Playlist
	defaults model.AlbumMetadata
	titles   []string
	answers  download.Answers

	renameTarget int

	plan   *download.Plan
	report *download.Report
	done   int
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	factory   PipelineFactory
	logs      []LogEntry
	notice    string
	err       error

	run *session

	// Options
	normalize bool
	playlist  bool
	verbose   bool

	width  int
	height int
}

// NewModel creates a new TUI model. A nil factory wires the real pipeline.
func NewModel(settings *config.Settings, factory PipelineFactory) Model {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	if factory == nil {
		factory = func(s *config.Settings, onProgress func(download.ProgressEvent)) *download.Pipeline {
			return download.New(s, slog.Default(), onProgress)
		}
	}

	ti := textinput.New()
	ti.Placeholder = "https://www.youtube.com/playlist?list=..."
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	return Model{
		state:     StateURL,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		factory:   factory,
		normalize: settings.NormalizeTitles,
		playlist:  settings.CreatePlaylist,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg carries one pipeline event.
	ProgressMsg struct {
		Event download.ProgressEvent
		run   *session
	}

	// ResolvedMsg is sent when the playlist has been fetched.
	ResolvedMsg struct {
		Playlist *model.Playlist
		Err      error
		run      *session
	}

	// RunDoneMsg is sent when the track loop has finished.
	RunDoneMsg struct {
		Report *download.Report
		Err    error
		run    *session
	}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancelRun()
			return m, tea.Quit

		case "esc":
			switch {
			case m.state == StateURL:
				return m, tea.Quit
			case m.isPrompt() || m.state == StateResolving || m.state == StateDownloading:
				m.cancelRun()
				m.state = StateError
				m.err = errors.New("cancelled by user")
			}
			return m, nil

		case "enter":
			if m.state == StateURL || m.isPrompt() {
				return m.submit()
			}

		case "ctrl+t":
			if m.state == StateURL {
				m.normalize = !m.normalize
			}
			return m, nil

		case "ctrl+p":
			if m.state == StateURL {
				m.playlist = !m.playlist
			}
			return m, nil

		case "ctrl+l":
			if m.state == StateURL {
				m.verbose = !m.verbose
			}
			return m, nil

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				m.reset()
				return m, textinput.Blink
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		// messages from a session dropped by reset are ignored
		if m.run == nil || msg.run != m.run {
			return m, nil
		}
		cmds = append(cmds, waitForEvent(m.run))
		if msg.Event.TrackDone {
			m.run.done++
			if total := m.trackCount(); total > 0 {
				cmds = append(cmds, m.progress.SetPercent(float64(m.run.done)/float64(total)))
			}
		}
		m.appendLog(msg.Event)

	case ResolvedMsg:
		if m.run == nil || msg.run != m.run || m.state != StateResolving {
			return m, nil
		}
		if msg.Err != nil {
			m.cancelRun()
			m.state = StateError
			m.err = msg.Err
			return m, nil
		}
		m.run.playlist = msg.Playlist
		m.run.defaults = m.run.pipeline.DefaultMetadata(msg.Playlist)
		m.run.titles = m.run.pipeline.DefaultTitles(msg.Playlist)
		m.prompt(StateArtist, m.run.defaults.Artist)

	case RunDoneMsg:
		if m.run == nil || msg.run != m.run || m.state != StateDownloading {
			return m, nil
		}
		m.run.report = msg.Report
		switch {
		case m.run.ctx.Err() != nil:
			m.state = StateError
			m.err = errors.New("cancelled by user")
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	if m.state == StateURL || m.isPrompt() {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) isPrompt() bool {
	return m.state >= StateArtist && m.state <= StateCover
}

// prompt switches to an input state with an empty field.
func (m *Model) prompt(state State, placeholder string) {
	m.state = state
	m.textInput.SetValue("")
	m.textInput.Placeholder = placeholder
	m.textInput.Focus()
}

// submit handles enter on the URL field or one of the question prompts.
// Empty answers keep the default shown as placeholder.
func (m Model) submit() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.textInput.Value())
	m.notice = ""

	switch m.state {
	case StateURL:
		if value == "" {
			return m, nil
		}
		return m.startResolve(value)

	case StateArtist:
		m.run.answers.Artist = value
		m.prompt(StateYear, m.run.defaults.Year)

	case StateYear:
		if value != "" && !model.IsYear(value) {
			m.notice = fmt.Sprintf("%q is not a 4-digit year", value)
			m.textInput.SetValue("")
			return m, nil
		}
		m.run.answers.Year = value
		m.prompt(StateAlbum, m.run.defaults.Title)

	case StateAlbum:
		m.run.answers.AlbumTitle = value
		m.prompt(StateRenameSelect, "track number to rename, empty to continue")

	case StateRenameSelect:
		if value == "" {
			m.prompt(StateCover, "1")
			return m, nil
		}
		n, err := parseTrackNumber(value, len(m.run.titles))
		if err != nil {
			m.notice = err.Error()
			m.textInput.SetValue("")
			return m, nil
		}
		m.run.renameTarget = n
		m.prompt(StateRenameTitle, m.run.titles[n-1])

	case StateRenameTitle:
		if value != "" {
			m.run.titles[m.run.renameTarget-1] = value
			if m.run.answers.Renames == nil {
				m.run.answers.Renames = make(map[int]string)
			}
			m.run.answers.Renames[m.run.renameTarget] = value
		}
		m.prompt(StateRenameSelect, "track number to rename, empty to continue")

	case StateCover:
		m.run.answers.Cover = download.ParseCoverChoice(value)
		return m.startRun()
	}

	return m, nil
}

func (m Model) startResolve(url string) (tea.Model, tea.Cmd) {
	settings := *m.settings
	settings.NormalizeTitles = m.normalize
	settings.CreatePlaylist = m.playlist

	ctx, cancel := context.WithCancel(context.Background())
	run := &session{ctx: ctx, cancel: cancel, events: make(chan download.ProgressEvent, 64)}
	run.pipeline = m.factory(&settings, func(e download.ProgressEvent) {
		select {
		case run.events <- e:
		case <-ctx.Done():
		}
	})

	m.run = run
	m.logs = nil
	m.state = StateResolving
	m.textInput.Blur()

	resolve := func() tea.Msg {
		playlist, err := run.pipeline.Resolve(ctx, url)
		return ResolvedMsg{Playlist: playlist, Err: err, run: run}
	}
	return m, tea.Batch(resolve, waitForEvent(run), m.spinner.Tick)
}

func (m Model) startRun() (tea.Model, tea.Cmd) {
	plan, err := m.run.pipeline.Plan(m.run.playlist, m.run.answers)
	if err != nil {
		m.cancelRun()
		m.state = StateError
		m.err = err
		return m, nil
	}

	m.run.plan = plan
	m.state = StateDownloading
	m.textInput.Blur()

	run := m.run
	exec := func() tea.Msg {
		report, err := run.pipeline.Run(run.ctx, plan)
		// Run makes no further progress calls, so the listener can drain and stop
		close(run.events)
		return RunDoneMsg{Report: report, Err: err, run: run}
	}
	return m, tea.Batch(exec, m.progress.SetPercent(0))
}

// waitForEvent blocks until the pipeline emits the next progress event. It
// yields nil once the session's channel is closed or its context is done.
func waitForEvent(run *session) tea.Cmd {
	return func() tea.Msg {
		select {
		case e, ok := <-run.events:
			if !ok {
				return nil
			}
			return ProgressMsg{Event: e, run: run}
		case <-run.ctx.Done():
			return nil
		}
	}
}

func (m *Model) appendLog(event download.ProgressEvent) {
	if event.Message == "" || (event.Level == download.LevelVerbose && !m.verbose) {
		return
	}
	m.logs = append(m.logs, LogEntry{Message: event.Message, Level: event.Level})
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

func (m *Model) cancelRun() {
	if m.run != nil {
		m.run.cancel()
	}
}

func (m *Model) reset() {
	m.cancelRun()
	m.run = nil
	m.logs = nil
	m.err = nil
	m.notice = ""
	m.progress.SetPercent(0)
	m.prompt(StateURL, "https://www.youtube.com/playlist?list=...")
}

func (m Model) trackCount() int {
	if m.run == nil || m.run.plan == nil {
		return 0
	}
	return len(m.run.plan.Album.Tracks)
}

func parseTrackNumber(value string, count int) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%q is not a track number", value)
	}
	if n < 1 || n > count {
		return 0, fmt.Errorf("track %d is outside 1..%d", n, count)
	}
	return n, nil
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("♪ Playlist Album Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Turn a playlist into a tagged MP3 album"))
	b.WriteString("\n\n")

	switch m.state {
	case StateURL:
		b.WriteString(m.viewURL())
	case StateResolving:
		b.WriteString(m.viewResolving())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	default:
		b.WriteString(m.viewPrompt())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.helpText()))

	return b.String()
}

func check(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func (m Model) viewURL() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Enter playlist or video URL:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s Normalize titles (ctrl+t)\n", check(m.normalize))
	fmt.Fprintf(&b, "  %s Create playlist file (ctrl+p)\n", check(m.playlist))
	fmt.Fprintf(&b, "  %s Verbose output (ctrl+l)\n", check(m.verbose))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Download path: %s", m.settings.DownloadsPath)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewResolving() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Fetching playlist info..."))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewPrompt() string {
	var b strings.Builder

	if m.run != nil && m.run.playlist != nil {
		b.WriteString(successStyle.Render(fmt.Sprintf("%s (%d tracks)", m.run.defaults.Title, len(m.run.titles))))
		b.WriteString("\n")
		if m.state >= StateRenameSelect {
			for i, t := range m.run.titles {
				b.WriteString(trackStyle.Render(fmt.Sprintf("  %2d. %s", i+1, t)))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}

	labels := map[State]string{
		StateArtist:       "Artist name:",
		StateYear:         "Year:",
		StateAlbum:        "Album title:",
		StateRenameSelect: "Rename a track:",
		StateRenameTitle:  fmt.Sprintf("New title for track %d:", m.runRenameTarget()),
		StateCover:        "Cover: track number or image URL:",
	}
	b.WriteString(subtitleStyle.Render(labels[m.state]))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(warningStyle.Render("! " + m.notice))
		b.WriteString("\n")
	}
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) runRenameTarget() int {
	if m.run == nil {
		return 0
	}
	return m.run.renameTarget
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	if m.run != nil && m.run.plan != nil {
		album := m.run.plan.Album
		b.WriteString(successStyle.Render(fmt.Sprintf("%s - %s (%s)", album.Artist, album.Title, album.Year)))
		b.WriteString("\n\n")
	}

	var percent float64
	if total := m.trackCount(); total > 0 {
		percent = float64(m.run.done) / float64(total)
	}
	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("Tracks: %d/%d", m.runDone(), m.trackCount())))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) runDone() int {
	if m.run == nil {
		return 0
	}
	return m.run.done
}

func (m Model) viewComplete() string {
	report := m.run.report
	if report == nil {
		return boxStyle.Render("Nothing was downloaded")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Download complete\n\nAlbum: %s\nTracks: %d/%d\nFolder: %s",
		report.Album.Title,
		len(report.Succeeded),
		len(report.Album.Tracks),
		report.Album.Path,
	)
	for _, f := range report.Failed {
		fmt.Fprintf(&b, "\n%s", errorStyle.Render(fmt.Sprintf("✗ %02d %s: %v", f.TrackNumber, f.Title, f.Err)))
	}

	return boxStyle.Render(b.String())
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("✗ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		fmt.Fprintf(&b, "  %s", m.err.Error())
	}
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) helpText() string {
	switch {
	case m.state == StateURL:
		return "enter: start • ctrl+t: titles • ctrl+p: playlist • ctrl+l: verbose • esc: quit"
	case m.isPrompt():
		return "enter: accept (empty keeps default) • esc: cancel"
	case m.state == StateResolving || m.state == StateDownloading:
		return "esc: cancel"
	case m.state == StateComplete || m.state == StateError:
		return "r: new download • q: quit"
	}
	return ""
}

// Run starts the TUI application.
func Run(settings *config.Settings) error {
	p := tea.NewProgram(NewModel(settings, nil), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
