package model

import (
	"fmt"
	"time"
)

// BoardContext identifies which dataset collection is being synchronized and
// presented: one dashboard belonging to one tenant.
type BoardContext struct {
	TenantID    string
	DashboardID string
}

// Key returns the canonical cache/map key for this context.
func (c BoardContext) Key() string {
	return c.TenantID + "/" + c.DashboardID
}

// IsZero reports whether no context has been selected.
func (c BoardContext) IsZero() bool {
	return c.TenantID == "" && c.DashboardID == ""
}

func (c BoardContext) String() string {
	return fmt.Sprintf("%s:%s", c.TenantID, c.DashboardID)
}

// ChartKind selects how a dataset is drawn.
type ChartKind string

const (
	ChartBar   ChartKind = "bar"
	ChartLine  ChartKind = "line"
	ChartPie   ChartKind = "pie"
	ChartTable ChartKind = "table"
	ChartStat  ChartKind = "stat"
)

// ValidChartKind reports whether k is a kind the renderer understands.
func ValidChartKind(k ChartKind) bool {
	switch k {
	case ChartBar, ChartLine, ChartPie, ChartTable, ChartStat:
		return true
	}
	return false
}

// NextChartKind cycles to the following kind, wrapping at the end. Used by
// the interactive surface to rotate a dataset's chart type in place.
func NextChartKind(k ChartKind) ChartKind {
	order := []ChartKind{ChartBar, ChartLine, ChartPie, ChartTable, ChartStat}
	for i, c := range order {
		if c == k {
			return order[(i+1)%len(order)]
		}
	}
	return ChartBar
}

// Row is one record of uploaded data. Values are whatever the upload parser
// produced: strings for labels, float64 for numbers (JSON decoding rules).
type Row map[string]any

// DatasetRecord is one uploaded dataset as returned by the data-file API.
// The slice of records for a context is replaced wholesale on every
// successful fetch; the only in-place mutation is the optimistic ChartKind
// patch, reverted when the server rejects it.
type DatasetRecord struct {
	ID         string    `json:"id"`
	Category   string    `json:"category"`
	Rows       []Row     `json:"rows"`
	UpdatedAt  time.Time `json:"updatedAt"`
	ChartKind  ChartKind `json:"chartKind"`
	SortIndex  int       `json:"sortIndex"`
	FieldOrder []string  `json:"fieldOrder"`
}

// Label returns the display title for the dataset.
func (d DatasetRecord) Label() string {
	if d.Category != "" {
		return d.Category
	}
	return d.ID
}

// TenantSettings are the per-tenant key/value presentation settings served
// by the settings store. Zero values mean "not set remotely".
type TenantSettings struct {
	SlideSeconds   int `json:"slideSeconds"`
	RefreshSeconds int `json:"refreshSeconds"`
	CacheTTLSecs   int `json:"cacheTtlSeconds"`
}
