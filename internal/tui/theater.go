package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/marqueehq/marquee/internal/engine"
)

// Height of the one-line footer below the chart grid in tv mode.
const theaterChromeLines = 1

// TheaterPage is the unattended full-screen surface: the same rotating grid
// with minimal chrome, meant for wall displays. It keeps the manual
// controls so a passerby with a keyboard can still steer it.
type TheaterPage struct {
	ctl  *engine.Controller
	keys KeyMap

	// standalone pages (marquee-tv) have no board page to return to
	standalone bool

	width  int
	height int
}

func NewTheaterPage(ctl *engine.Controller, standalone bool) *TheaterPage {
	return &TheaterPage{
		ctl:        ctl,
		keys:       DefaultKeyMap(),
		standalone: standalone,
	}
}

func (p *TheaterPage) ID() string { return TheaterPageID }

func (p *TheaterPage) Init() tea.Cmd {
	return waitForUpdate(p.ctl)
}

func (p *TheaterPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		p.ctl.Resize(msg.Width, msg.Height-theaterChromeLines)
		return nil, nil

	case engineUpdateMsg:
		return waitForUpdate(p.ctl), nil

	case tea.KeyMsg:
		v := p.ctl.Snapshot()
		switch {
		case key.Matches(msg, p.keys.ForceQuit), key.Matches(msg, p.keys.Quit):
			return tea.Quit, nil
		case key.Matches(msg, p.keys.Exit):
			if p.standalone {
				return tea.Quit, nil
			}
			return nil, &PageNav{PageID: BoardPageID}
		case key.Matches(msg, p.keys.Next):
			p.ctl.NextSlide()
		case key.Matches(msg, p.keys.Previous):
			p.ctl.PreviousSlide()
		case key.Matches(msg, p.keys.Pause):
			p.ctl.TogglePause()
		case key.Matches(msg, p.keys.Refresh):
			if v.Phase == engine.PhaseError {
				p.ctl.Retry()
			} else {
				p.ctl.ForceRefresh()
			}
		}
	}
	return nil, nil
}

func (p *TheaterPage) View(width, height int) string {
	if width == 0 {
		width, height = p.width, p.height
	}
	if width < 20 || height < theaterChromeLines+4 {
		return "Terminal too small"
	}

	v := p.ctl.Snapshot()
	gridHeight := height - theaterChromeLines

	var body string
	switch v.Phase {
	case engine.PhaseError:
		body = renderErrorPanel(v, width, gridHeight)
	case engine.PhaseDenied:
		body = renderDeniedPanel(v, width, gridHeight)
	default:
		if len(v.Slide) == 0 {
			body = centeredMessage(width, gridHeight, helpStyle.Render("Loading "+v.Context.String()+"..."))
		} else {
			body = renderSlideGrid(v.Slide, width, gridHeight, -1)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, renderStatusBar(v, width))
}
