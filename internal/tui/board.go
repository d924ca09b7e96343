package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/marqueehq/marquee/internal/engine"
	"github.com/marqueehq/marquee/internal/model"
)

const (
	BoardPageID   = "board"
	TheaterPageID = "theater"
)

// Lines reserved above and below the chart grid on the interactive surface.
const boardChromeLines = 3

// engineUpdateMsg signals that the controller has new state to render.
type engineUpdateMsg struct{}

// waitForUpdate blocks on the controller's notification channel and turns
// each signal into a Bubble Tea message. The page re-issues it on receipt.
func waitForUpdate(ctl *engine.Controller) tea.Cmd {
	return func() tea.Msg {
		<-ctl.Updates()
		return engineUpdateMsg{}
	}
}

// BoardPage is the interactive dashboard surface: rotating chart grid with
// keyboard control over slides, pause, refresh, chart types, and the
// dashboard switcher.
type BoardPage struct {
	ctl      *engine.Controller
	keys     KeyMap
	tenantID string

	selected  int
	switching bool
	switchIn  textinput.Model

	width  int
	height int
}

func NewBoardPage(ctl *engine.Controller, tenantID string) *BoardPage {
	in := textinput.New()
	in.Placeholder = "dashboard id"
	in.CharLimit = 64
	in.Width = 32
	return &BoardPage{
		ctl:      ctl,
		keys:     DefaultKeyMap(),
		tenantID: tenantID,
		switchIn: in,
	}
}

func (p *BoardPage) ID() string { return BoardPageID }

func (p *BoardPage) Init() tea.Cmd {
	return waitForUpdate(p.ctl)
}

func (p *BoardPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		p.ctl.Resize(msg.Width, msg.Height-boardChromeLines)
		return nil, nil

	case engineUpdateMsg:
		p.clampSelection()
		return waitForUpdate(p.ctl), nil

	case tea.KeyMsg:
		if p.switching {
			return p.updateSwitcher(msg), nil
		}
		return p.handleKey(msg)
	}
	return nil, nil
}

func (p *BoardPage) handleKey(msg tea.KeyMsg) (tea.Cmd, *PageNav) {
	v := p.ctl.Snapshot()

	switch {
	case key.Matches(msg, p.keys.ForceQuit), key.Matches(msg, p.keys.Quit):
		return tea.Quit, nil

	case key.Matches(msg, p.keys.Theater):
		return nil, &PageNav{PageID: TheaterPageID}

	case key.Matches(msg, p.keys.Switch):
		p.switching = true
		p.switchIn.SetValue("")
		p.switchIn.Focus()
		return textinput.Blink, nil

	case key.Matches(msg, p.keys.Next):
		p.ctl.NextSlide()
		p.selected = 0

	case key.Matches(msg, p.keys.Previous):
		p.ctl.PreviousSlide()
		p.selected = 0

	case key.Matches(msg, p.keys.Pause):
		p.ctl.TogglePause()

	case key.Matches(msg, p.keys.Refresh):
		// One key drives both: retry from a blocking error, refresh otherwise.
		if v.Phase == engine.PhaseError {
			p.ctl.Retry()
		} else {
			p.ctl.ForceRefresh()
		}

	case key.Matches(msg, p.keys.SelectUp):
		if p.selected > 0 {
			p.selected--
		}

	case key.Matches(msg, p.keys.SelectDn):
		if p.selected < len(v.Slide)-1 {
			p.selected++
		}

	case key.Matches(msg, p.keys.Dismiss):
		p.ctl.DismissNotice()

	case key.Matches(msg, p.keys.CycleKind):
		if p.selected >= 0 && p.selected < len(v.Slide) {
			rec := v.Slide[p.selected]
			p.ctl.SetChartKind(rec.ID, model.NextChartKind(rec.ChartKind))
		}
	}
	return nil, nil
}

func (p *BoardPage) updateSwitcher(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		id := strings.TrimSpace(p.switchIn.Value())
		p.switching = false
		p.switchIn.Blur()
		if id != "" {
			p.selected = 0
			p.ctl.SelectContext(model.BoardContext{TenantID: p.tenantID, DashboardID: id})
		}
		return nil
	case tea.KeyEsc:
		p.switching = false
		p.switchIn.Blur()
		return nil
	}
	var cmd tea.Cmd
	p.switchIn, cmd = p.switchIn.Update(msg)
	return cmd
}

func (p *BoardPage) clampSelection() {
	v := p.ctl.Snapshot()
	if p.selected >= len(v.Slide) {
		p.selected = len(v.Slide) - 1
	}
	if p.selected < 0 {
		p.selected = 0
	}
}

func (p *BoardPage) View(width, height int) string {
	if width == 0 {
		width, height = p.width, p.height
	}
	if width < 20 || height < boardChromeLines+4 {
		return "Terminal too small"
	}

	v := p.ctl.Snapshot()
	gridHeight := height - boardChromeLines

	var body string
	switch v.Phase {
	case engine.PhaseIdle, engine.PhaseLoading:
		if len(v.Slide) > 0 {
			body = renderSlideGrid(v.Slide, width, gridHeight, p.selected)
		} else {
			body = centeredMessage(width, gridHeight, helpStyle.Render("Loading "+v.Context.String()+"..."))
		}
	case engine.PhaseError:
		body = renderErrorPanel(v, width, gridHeight)
	case engine.PhaseDenied:
		body = renderDeniedPanel(v, width, gridHeight)
	default:
		body = renderSlideGrid(v.Slide, width, gridHeight, p.selected)
	}

	status := renderStatusBar(v, width)
	notice := renderNoticeLine(v, width)
	help := p.helpLine(width)

	return lipgloss.JoinVertical(lipgloss.Left, status, body, notice, help)
}

func (p *BoardPage) helpLine(width int) string {
	if p.switching {
		return statusStyle.Render("switch dashboard: ") + p.switchIn.View()
	}
	line := "←/→ slides · space pause · r refresh · ↑/↓ select · c chart type · x dismiss · d dashboard · t tv mode · q quit"
	return helpStyle.Width(width).MaxHeight(1).Render(line)
}

func renderStatusBar(v engine.View, width int) string {
	var b strings.Builder
	b.WriteString(v.Context.String())
	if v.SlideCount > 0 {
		fmt.Fprintf(&b, " · slide %d/%d", v.SlideIndex+1, v.SlideCount)
	}
	if v.Paused {
		b.WriteString(" · PAUSED")
	}
	switch v.Phase {
	case engine.PhaseLoading:
		b.WriteString(" · refreshing...")
	default:
		if !v.LastFetched.IsZero() {
			b.WriteString(" · updated " + v.LastFetched.Format("15:04:05"))
		}
	}
	return statusStyle.Width(width).MaxHeight(1).Render(b.String())
}

func renderNoticeLine(v engine.View, width int) string {
	if v.Notice == "" {
		return ""
	}
	return noticeStyle.Width(width).MaxHeight(1).Render(v.Notice)
}

func renderErrorPanel(v engine.View, width, height int) string {
	msg := lipgloss.JoinVertical(lipgloss.Center,
		errorTitleStyle.Render("Data unavailable"),
		"",
		v.ErrMsg,
		"",
		helpStyle.Render("press r to try again"),
	)
	return centeredMessage(width, height, msg)
}

func renderDeniedPanel(v engine.View, width, height int) string {
	msg := lipgloss.JoinVertical(lipgloss.Center,
		errorTitleStyle.Render("Access denied"),
		"",
		"You do not have access to "+v.Context.String()+".",
		"",
		helpStyle.Render("press d to switch dashboards"),
	)
	return centeredMessage(width, height, msg)
}

func centeredMessage(width, height int, msg string) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, msg)
}
