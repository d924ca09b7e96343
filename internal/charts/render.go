package charts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"

	"github.com/marqueehq/marquee/internal/model"
)

var (
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Background(lipgloss.Color("39"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	statStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("45")).Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
)

// Sparkline block characters, lowest to highest.
var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// Render draws one dataset into a width x height cell area according to its
// chart kind. Unknown kinds fall back to a bar chart. The result never
// exceeds height lines.
func Render(rec model.DatasetRecord, width, height int) string {
	if width < 4 || height < 1 {
		return ""
	}
	if len(rec.Rows) == 0 {
		return mutedStyle.Render("No data")
	}

	var body string
	switch rec.ChartKind {
	case model.ChartLine:
		body = renderLine(rec, width, height)
	case model.ChartPie:
		body = renderPie(rec, width, height)
	case model.ChartTable:
		body = renderTable(rec, width, height)
	case model.ChartStat:
		body = renderStat(rec, width, height)
	default:
		body = renderBar(rec, width, height)
	}
	return clampLines(body, height)
}

// labelAndValueFields picks the label column (first non-numeric field) and
// the value column (first numeric field) using the record's field order.
func labelAndValueFields(rec model.DatasetRecord) (string, string) {
	label, value := "", ""
	for _, f := range rec.FieldOrder {
		_, numeric := numericValue(rec.Rows[0][f])
		if numeric && value == "" {
			value = f
		}
		if !numeric && label == "" {
			label = f
		}
	}
	if label == "" && len(rec.FieldOrder) > 0 {
		label = rec.FieldOrder[0]
	}
	return label, value
}

// numericValue coerces a decoded JSON/YAML value into a float64.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

func renderBar(rec model.DatasetRecord, width, height int) string {
	labelField, valueField := labelAndValueFields(rec)
	if valueField == "" || height < 3 {
		return renderTable(rec, width, height)
	}

	maxBars := len(rec.Rows)
	if maxBars > width/2 {
		maxBars = width / 2
	}

	bc := barchart.New(width, height-1,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(1),
		barchart.WithNoAxis(),
	)
	for _, row := range rec.Rows[:maxBars] {
		val, _ := numericValue(row[valueField])
		bc.Push(barchart.BarData{
			Label: stringValue(row[labelField]),
			Values: []barchart.BarValue{
				{Name: valueField, Value: val, Style: barStyle},
			},
		})
	}
	bc.Draw()

	legend := mutedStyle.Render(truncate(valueField, width))
	return lipgloss.JoinVertical(lipgloss.Left, bc.View(), legend)
}

func renderLine(rec model.DatasetRecord, width, height int) string {
	_, valueField := labelAndValueFields(rec)
	if valueField == "" {
		return renderTable(rec, width, height)
	}

	values := make([]float64, 0, len(rec.Rows))
	for _, row := range rec.Rows {
		if v, ok := numericValue(row[valueField]); ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return mutedStyle.Render("No numeric data")
	}

	spark := sparkline(values, width)
	last := values[len(values)-1]
	caption := mutedStyle.Render(truncate(fmt.Sprintf("%s  latest %s", valueField, trimFloat(last)), width))
	return lipgloss.JoinVertical(lipgloss.Left, valueStyle.Render(spark), caption)
}

// sparkline maps values onto block runes across the min/max range, keeping
// only the most recent width points.
func sparkline(values []float64, width int) string {
	if width < 1 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	var sb strings.Builder
	levels := len(sparkRunes)
	for _, v := range values {
		level := levels / 2
		if hi > lo {
			level = int((v - lo) / (hi - lo) * float64(levels-1))
		}
		if level < 0 {
			level = 0
		}
		if level >= levels {
			level = levels - 1
		}
		sb.WriteRune(sparkRunes[level])
	}
	return sb.String()
}

func renderPie(rec model.DatasetRecord, width, height int) string {
	labelField, valueField := labelAndValueFields(rec)
	if valueField == "" {
		return renderTable(rec, width, height)
	}

	total := 0.0
	for _, row := range rec.Rows {
		if v, ok := numericValue(row[valueField]); ok && v > 0 {
			total += v
		}
	}
	if total <= 0 {
		return mutedStyle.Render("No numeric data")
	}

	barWidth := width / 3
	if barWidth < 5 {
		barWidth = 5
	}

	lines := make([]string, 0, len(rec.Rows))
	for _, row := range rec.Rows {
		v, ok := numericValue(row[valueField])
		if !ok || v <= 0 {
			continue
		}
		share := v / total
		filled := int(share * float64(barWidth))
		if filled == 0 {
			filled = 1
		}
		pct := fmt.Sprintf("%4.1f%%", share*100)
		if share < 0.01 {
			pct = " <1.0%"
		}
		bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
		label := truncate(stringValue(row[labelField]), width-barWidth-9)
		lines = append(lines, fmt.Sprintf("%s %s %s",
			valueStyle.Render(bar), headerStyle.Render(pct), labelStyle.Render(label)))
		if len(lines) >= height {
			break
		}
	}
	return strings.Join(lines, "\n")
}

func renderTable(rec model.DatasetRecord, width, height int) string {
	fields := rec.FieldOrder
	if len(fields) == 0 {
		return mutedStyle.Render("No columns")
	}

	colWidth := width/len(fields) - 1
	if colWidth < 4 {
		colWidth = 4
	}

	formatCell := func(s string) string {
		s = truncate(s, colWidth)
		return fmt.Sprintf("%-*s", colWidth, s)
	}

	var header strings.Builder
	for _, f := range fields {
		header.WriteString(formatCell(f) + " ")
	}
	lines := []string{headerStyle.Render(strings.TrimRight(header.String(), " "))}

	for _, row := range rec.Rows {
		var line strings.Builder
		for _, f := range fields {
			if v, ok := numericValue(row[f]); ok {
				line.WriteString(formatCell(trimFloat(v)) + " ")
			} else {
				line.WriteString(formatCell(stringValue(row[f])) + " ")
			}
		}
		lines = append(lines, labelStyle.Render(strings.TrimRight(line.String(), " ")))
		if len(lines) >= height {
			break
		}
	}
	return strings.Join(lines, "\n")
}

func renderStat(rec model.DatasetRecord, width, height int) string {
	_, valueField := labelAndValueFields(rec)
	if valueField == "" {
		return renderTable(rec, width, height)
	}

	last := 0.0
	found := false
	for _, row := range rec.Rows {
		if v, ok := numericValue(row[valueField]); ok {
			last = v
			found = true
		}
	}
	if !found {
		return mutedStyle.Render("No numeric data")
	}

	big := statStyle.Render(trimFloat(last))
	caption := mutedStyle.Render(truncate(valueField, width))
	block := lipgloss.JoinVertical(lipgloss.Center, big, caption)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, block)
}

func truncate(s string, max int) string {
	if max < 1 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}

func trimFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

func clampLines(s string, height int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= height {
		return s
	}
	return strings.Join(lines[:height], "\n")
}
