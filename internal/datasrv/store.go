package datasrv

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/marqueehq/marquee/internal/model"
)

// Fixtures is the YAML document describing the simulated tenants, their
// dashboards, and the datasets each dashboard serves.
type Fixtures struct {
	Tenants []TenantFixture `yaml:"tenants"`
}

type TenantFixture struct {
	ID         string               `yaml:"id"`
	Settings   model.TenantSettings `yaml:"settings"`
	Dashboards []DashboardFixture   `yaml:"dashboards"`
}

type DashboardFixture struct {
	ID         string           `yaml:"id"`
	Restricted bool             `yaml:"restricted"`
	Datasets   []DatasetFixture `yaml:"datasets"`
}

type DatasetFixture struct {
	ID        string      `yaml:"id"`
	Category  string      `yaml:"category"`
	ChartKind string      `yaml:"chartKind"`
	SortIndex int         `yaml:"sortIndex"`
	Rows      []model.Row `yaml:"rows"`
}

// LoadFixtures reads and parses a fixture file.
func LoadFixtures(path string) (*Fixtures, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var f Fixtures
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures %s: %w", path, err)
	}
	return &f, nil
}

// DefaultFixtures returns a small built-in tenant so the simulator is
// usable without a fixture file.
func DefaultFixtures() *Fixtures {
	return &Fixtures{
		Tenants: []TenantFixture{
			{
				ID:       "acme",
				Settings: model.TenantSettings{SlideSeconds: 8, RefreshSeconds: 20, CacheTTLSecs: 45},
				Dashboards: []DashboardFixture{
					{
						ID: "main",
						Datasets: []DatasetFixture{
							{
								ID: "revenue", Category: "Revenue by region", ChartKind: "bar", SortIndex: 0,
								Rows: []model.Row{
									{"region": "EMEA", "revenue": 1240.0},
									{"region": "AMER", "revenue": 2210.0},
									{"region": "APAC", "revenue": 980.0},
								},
							},
							{
								ID: "signups", Category: "Weekly signups", ChartKind: "line", SortIndex: 1,
								Rows: []model.Row{
									{"week": "W1", "count": 31.0},
									{"week": "W2", "count": 48.0},
									{"week": "W3", "count": 44.0},
									{"week": "W4", "count": 61.0},
								},
							},
							{
								ID: "plans", Category: "Plan mix", ChartKind: "pie", SortIndex: 2,
								Rows: []model.Row{
									{"plan": "free", "share": 62.0},
									{"plan": "pro", "share": 31.0},
									{"plan": "enterprise", "share": 7.0},
								},
							},
							{
								ID: "uptime", Category: "Uptime", ChartKind: "stat", SortIndex: 3,
								Rows: []model.Row{
									{"metric": "uptime", "value": 99.97},
								},
							},
						},
					},
					{ID: "finance", Restricted: true},
				},
			},
		},
	}
}

type dashboard struct {
	restricted bool
	datasets   []model.DatasetRecord
}

type tenant struct {
	settings   model.TenantSettings
	dashboards map[string]*dashboard
}

// Store holds the simulated dataset state in memory. Chart-kind patches
// mutate it, so readers hand out copies.
type Store struct {
	mu      sync.RWMutex
	tenants map[string]*tenant
	// datasetID -> owning tenant, for patch authorization
	owners map[string]string
}

// NewStore builds a store from fixtures.
func NewStore(f *Fixtures) *Store {
	s := &Store{
		tenants: make(map[string]*tenant),
		owners:  make(map[string]string),
	}
	now := time.Now().UTC()
	for _, tf := range f.Tenants {
		t := &tenant{settings: tf.Settings, dashboards: make(map[string]*dashboard)}
		for _, df := range tf.Dashboards {
			d := &dashboard{restricted: df.Restricted}
			for _, rec := range df.Datasets {
				kind := model.ChartKind(rec.ChartKind)
				if !model.ValidChartKind(kind) {
					kind = model.ChartBar
				}
				d.datasets = append(d.datasets, model.DatasetRecord{
					ID:        rec.ID,
					Category:  rec.Category,
					Rows:      rec.Rows,
					UpdatedAt: now,
					ChartKind: kind,
					SortIndex: rec.SortIndex,
				})
				s.owners[rec.ID] = tf.ID
			}
			t.dashboards[df.ID] = d
		}
		s.tenants[tf.ID] = t
	}
	return s
}

var (
	errNotFound   = fmt.Errorf("not found")
	errRestricted = fmt.Errorf("restricted")
	errWrongOwner = fmt.Errorf("dataset belongs to another tenant")
)

// Datasets returns a copy of the dataset list for one dashboard.
func (s *Store) Datasets(tenantID, dashboardID string) ([]model.DatasetRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, err := s.dashboardLocked(tenantID, dashboardID)
	if err != nil {
		return nil, err
	}
	if d.restricted {
		return nil, errRestricted
	}
	out := make([]model.DatasetRecord, len(d.datasets))
	copy(out, d.datasets)
	return out, nil
}

// Access reports whether the dashboard exists and is readable.
func (s *Store) Access(tenantID, dashboardID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, err := s.dashboardLocked(tenantID, dashboardID)
	if err != nil {
		return false, err
	}
	return !d.restricted, nil
}

// Settings returns the per-tenant presentation settings.
func (s *Store) Settings(tenantID string) (model.TenantSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		return model.TenantSettings{}, errNotFound
	}
	return t.settings, nil
}

// PatchChartKind updates the stored chart kind for one dataset, checking
// that the requesting tenant owns it.
func (s *Store) PatchChartKind(tenantID, datasetID string, kind model.ChartKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.owners[datasetID]
	if !ok {
		return errNotFound
	}
	if owner != tenantID {
		return errWrongOwner
	}
	t := s.tenants[owner]
	for _, d := range t.dashboards {
		for i := range d.datasets {
			if d.datasets[i].ID == datasetID {
				d.datasets[i].ChartKind = kind
				d.datasets[i].UpdatedAt = time.Now().UTC()
				return nil
			}
		}
	}
	return errNotFound
}

func (s *Store) dashboardLocked(tenantID, dashboardID string) (*dashboard, error) {
	t, ok := s.tenants[tenantID]
	if !ok {
		return nil, errNotFound
	}
	d, ok := t.dashboards[dashboardID]
	if !ok {
		return nil, errNotFound
	}
	return d, nil
}
