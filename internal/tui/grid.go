package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/marqueehq/marquee/internal/charts"
	"github.com/marqueehq/marquee/internal/model"
)

// gridColumns picks the column count for n charts on one slide.
func gridColumns(n int) int {
	switch {
	case n <= 1:
		return 1
	case n <= 4:
		return 2
	default:
		return 3
	}
}

// gridRowHeights distributes the available height equally across rows,
// giving the last row any remainder.
func gridRowHeights(rows, height int) []int {
	if rows <= 0 {
		return nil
	}
	perRow := height / rows
	if perRow < 4 {
		perRow = 4
	}
	heights := make([]int, rows)
	for i := range heights {
		heights[i] = perRow
	}
	heights[rows-1] = height - perRow*(rows-1)
	if heights[rows-1] < 4 {
		heights[rows-1] = 4
	}
	return heights
}

// renderSlideGrid renders one slide's datasets as a bordered chart grid.
// selected highlights one chart by position, -1 for none.
func renderSlideGrid(datasets []model.DatasetRecord, width, height, selected int) string {
	if width < 20 {
		return "Terminal too narrow"
	}
	if len(datasets) == 0 {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
			helpStyle.Render("No datasets on this dashboard"))
	}

	cols := gridColumns(len(datasets))
	rows := (len(datasets) + cols - 1) / cols
	rowHeights := gridRowHeights(rows, height)

	// Borders take 2 cells per panel on each axis.
	const borderWidth = 2
	colGap := 0
	panelWidth := width - borderWidth
	if cols > 1 {
		colGap = 1
		panelWidth = (width - (cols-1)*colGap - cols*borderWidth) / cols
		if panelWidth < 20 {
			panelWidth = 20
		}
	}

	blank := func(h int) string {
		return lipgloss.NewStyle().Width(panelWidth + borderWidth).Height(h).Render("")
	}

	renderPanel := func(idx, h int) string {
		rec := datasets[idx]
		style := panelStyle
		if idx == selected {
			style = activePanelStyle
		}
		innerHeight := h - borderWidth - 1 // minus title line
		if innerHeight < 1 {
			innerHeight = 1
		}
		title := panelTitleStyle.Render(truncateTitle(rec.Label(), panelWidth))
		body := charts.Render(rec, panelWidth, innerHeight)
		return style.Width(panelWidth).Height(h - borderWidth).
			Render(lipgloss.JoinVertical(lipgloss.Left, title, body))
	}

	renderedRows := make([]string, 0, rows)
	for row := 0; row < rows; row++ {
		rowPanels := make([]string, 0, cols)
		for col := 0; col < cols; col++ {
			idx := row*cols + col
			if idx >= len(datasets) {
				if cols > 1 {
					rowPanels = append(rowPanels, blank(rowHeights[row]))
				}
				continue
			}
			rowPanels = append(rowPanels, renderPanel(idx, rowHeights[row]))
		}

		rowView := rowPanels[0]
		if len(rowPanels) > 1 {
			withGaps := make([]string, 0, len(rowPanels)*2-1)
			for i, panel := range rowPanels {
				if i > 0 {
					withGaps = append(withGaps, " ")
				}
				withGaps = append(withGaps, panel)
			}
			rowView = lipgloss.JoinHorizontal(lipgloss.Top, withGaps...)
		}
		renderedRows = append(renderedRows, rowView)
	}

	grid := lipgloss.JoinVertical(lipgloss.Left, renderedRows...)
	return lipgloss.NewStyle().Width(width).Height(height).MaxHeight(height).Render(grid)
}

func truncateTitle(s string, max int) string {
	r := []rune(s)
	if max < 1 {
		return ""
	}
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
