// Package app is the bubbletea TUI for live transcription. All state
// transitions happen on the single Update loop, so capture, network, and
// key events never race.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/sawnaing/saye/export"
	"github.com/sawnaing/saye/session"
	"github.com/sawnaing/saye/transcript"
)

const noticeDuration = 3 * time.Second

type Model struct {
	ctrl   *session.Controller
	acc    *transcript.Accumulator
	store  *transcript.Store
	logger *log.Logger

	state  session.State
	events <-chan session.Event

	vp     viewport.Model
	ready  bool
	width  int
	height int

	micLevel float32
	dropped  int64

	errorMessage string
	notice       string
	confirmClear bool

	exportDir string
	now       func() time.Time
}

func New(
	ctrl *session.Controller,
	store *transcript.Store,
	logger *log.Logger,
) Model {
	return Model{
		ctrl:      ctrl,
		acc:       transcript.NewAccumulator(),
		store:     store,
		logger:    logger,
		state:     session.Idle,
		exportDir: ".",
		now:       time.Now,
	}
}

// WithExportDir overrides where .doc exports are written.
func (m Model) WithExportDir(dir string) Model {
	if dir != "" {
		m.exportDir = dir
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func startCmd(ctrl *session.Controller) tea.Cmd {
	return func() tea.Msg {
		events, err := ctrl.Start(context.Background())
		if err != nil {
			return sessionStartErrorMsg{err: err}
		}
		return sessionStartedMsg{events: events}
	}
}

func stopCmd(ctrl *session.Controller) tea.Cmd {
	return func() tea.Msg {
		ctrl.Stop()
		return sessionStoppedMsg{}
	}
}

func waitForEvent(events <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return sessionEndedMsg{}
		}
		return sessionEventMsg{event: ev}
	}
}

func copyCmd(text string, count int) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{count: count, err: clipboard.WriteAll(text)}
	}
}

func exportCmd(dir string, segments []transcript.Segment, now time.Time) tea.Cmd {
	return func() tea.Msg {
		path, err := export.WriteWordDocument(dir, segments, now)
		return exportedMsg{path: path, err: err}
	}
}

func saveSegmentCmd(store *transcript.Store, seg transcript.Segment) tea.Cmd {
	return func() tea.Msg {
		return segmentSavedMsg{err: store.SaveSegment(seg)}
	}
}

func expireNoticeCmd() tea.Cmd {
	return tea.Tick(noticeDuration, func(time.Time) tea.Msg {
		return noticeExpiredMsg{}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerHeight := lipgloss.Height(m.headerView())
		footerHeight := lipgloss.Height(m.footerView())
		vpHeight := msg.Height - headerHeight - footerHeight
		if !m.ready {
			m.vp = viewport.New(msg.Width, vpHeight)
			m.vp.YPosition = headerHeight
			m.vp.SetContent(m.transcriptView())
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = vpHeight
		}

	case sessionStartedMsg:
		m.state = session.Listening
		m.events = msg.events
		m.errorMessage = ""
		cmds = append(cmds, waitForEvent(m.events))

	case sessionStartErrorMsg:
		m.state = session.Idle
		// A stop that raced the start is not an error worth showing.
		if !errors.Is(msg.err, session.ErrStopped) {
			m.errorMessage = msg.err.Error()
		}

	case sessionEventMsg:
		cmd := m.handleSessionEvent(msg.event)
		if m.events != nil {
			cmds = append(cmds, waitForEvent(m.events))
		}
		cmds = append(cmds, cmd)

	case sessionEndedMsg:
		m.state = session.Idle
		m.events = nil
		m.micLevel = 0
		m.acc.DiscardDraft()
		m.refresh()

	case sessionStoppedMsg:
		// Teardown already reflected; the event stream closing follows.

	case copiedMsg:
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("copy failed: %v", msg.err)
		} else {
			m.notice = fmt.Sprintf("copied %d segments", msg.count)
			cmds = append(cmds, expireNoticeCmd())
		}

	case exportedMsg:
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("export failed: %v", msg.err)
		} else {
			m.notice = "saved " + msg.path
			cmds = append(cmds, expireNoticeCmd())
		}

	case segmentSavedMsg:
		if msg.err != nil {
			m.logger.Error("persist segment", "error", msg.err)
		}

	case noticeExpiredMsg:
		m.notice = ""
	}

	if m.ready {
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.confirmClear {
		m.confirmClear = false
		if key == "y" || key == "Y" {
			m.acc.Clear()
			m.refresh()
			m.notice = "transcript cleared"
			return m, expireNoticeCmd()
		}
		m.notice = ""
		return m, nil
	}

	switch key {
	case "q", "ctrl+c":
		m.ctrl.Stop()
		return m, tea.Quit

	case " ":
		switch m.state {
		case session.Idle:
			m.state = session.Connecting
			m.errorMessage = ""
			return m, startCmd(m.ctrl)
		case session.Connecting, session.Listening:
			// Partial draft is discarded, never committed.
			m.acc.DiscardDraft()
			m.state = session.Idle
			m.refresh()
			return m, stopCmd(m.ctrl)
		}

	case "c":
		return m, copyCmd(m.acc.CopyText(), m.acc.Len())

	case "e":
		if m.acc.Len() == 0 {
			m.notice = "nothing to save"
			return m, expireNoticeCmd()
		}
		return m, exportCmd(m.exportDir, m.acc.Segments(), m.now())

	case "x":
		if m.acc.Len() == 0 && m.acc.Draft() == "" {
			return m, nil
		}
		m.confirmClear = true
		return m, nil
	}

	if m.ready {
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleSessionEvent(ev session.Event) tea.Cmd {
	switch ev.Kind {
	case session.Partial:
		m.acc.AppendPartial(ev.Text)
		m.refresh()

	case session.TurnComplete:
		seg := m.acc.CompleteTurn(m.now())
		m.refresh()
		if seg != nil && m.store != nil {
			return saveSegmentCmd(m.store, *seg)
		}

	case session.SessionError:
		m.errorMessage = ev.Err.Error()
		m.state = session.Idle
		m.acc.DiscardDraft()
		m.refresh()
		return stopCmd(m.ctrl)

	case session.SessionClosed:
		m.state = session.Idle
		m.acc.DiscardDraft()
		m.refresh()

	case session.AudioLevel:
		m.micLevel = ev.Level
		if m.ctrl != nil {
			m.dropped = m.ctrl.Dropped()
		}
	}
	return nil
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.vp.SetContent(m.transcriptView())
	m.vp.GotoBottom()
}

func (m Model) transcriptView() string {
	var b strings.Builder
	for _, seg := range m.acc.Segments() {
		b.WriteString(timestampStyle.Render(seg.CapturedAt.Format("(15:04:05) ")))
		b.WriteString(seg.Text)
		b.WriteString("\n")
	}
	if draft := m.acc.Draft(); draft != "" {
		b.WriteString(partialStyle.Render(draft + "▌"))
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return dimStyle.Render("  Press Space to start listening")
	}
	return b.String()
}

func (m Model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	return fmt.Sprintf(
		"%s\n%s\n%s",
		m.headerView(),
		m.vp.View(),
		m.footerView(),
	)
}

func (m Model) headerView() string {
	title := titleStyle.Render("saye — Myanmar transcription")

	var dot string
	switch m.state {
	case session.Listening:
		dot = recordingDotStyle.Render(" ● REC")
	case session.Connecting:
		dot = connectingDotStyle.Render(" ◌ CONNECTING")
	default:
		dot = idleDotStyle.Render(" ○ IDLE")
	}

	var meter string
	if m.state == session.Listening {
		meter = " " + renderLevelMeter(m.micLevel)
	}

	var drops string
	if m.dropped > 0 {
		drops = dimStyle.Render(fmt.Sprintf(" drop %d", m.dropped))
	}

	line := strings.Repeat("─", max(0,
		m.width-lipgloss.Width(title)-lipgloss.Width(dot)-lipgloss.Width(meter)-lipgloss.Width(drops)))
	return title + dot + meter + drops + dimStyle.Render(line)
}

func renderLevelMeter(level float32) string {
	const cells = 8
	filled := int(level * cells)
	if filled > cells {
		filled = cells
	}
	var b strings.Builder
	for i := 0; i < cells; i++ {
		if i < filled {
			b.WriteString(levelOnStyle.Render("█"))
		} else {
			b.WriteString(levelOffStyle.Render("░"))
		}
	}
	return b.String()
}

func (m Model) footerView() string {
	if m.confirmClear {
		return errorStyle.Render("clear the whole transcript?") +
			dimStyle.Render(" press y to confirm, any other key to cancel")
	}
	if m.errorMessage != "" {
		return errorStyle.Render("error: ") + m.errorMessage
	}
	if m.notice != "" {
		return noticeStyle.Render(m.notice)
	}

	var record string
	if m.state == session.Idle {
		record = footerKeyStyle.Render("Space") + footerDescStyle.Render(" Listen")
	} else {
		record = footerKeyStyle.Render("Space") + footerDescStyle.Render(" Stop")
	}
	parts := []string{
		record,
		footerKeyStyle.Render("c") + footerDescStyle.Render(" Copy"),
		footerKeyStyle.Render("e") + footerDescStyle.Render(" Export"),
		footerKeyStyle.Render("x") + footerDescStyle.Render(" Clear"),
		footerKeyStyle.Render("q") + footerDescStyle.Render(" Quit"),
	}
	return strings.Join(parts, "  ")
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
