package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/marqueehq/marquee/internal/api"
	"github.com/marqueehq/marquee/internal/auth"
	"github.com/marqueehq/marquee/internal/cache"
	"github.com/marqueehq/marquee/internal/engine"
	"github.com/marqueehq/marquee/internal/logger"
	"github.com/marqueehq/marquee/internal/model"
	"github.com/marqueehq/marquee/internal/tui"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	var configPath string
	var tenantID string
	var dashboardID string
	var apiURL string
	var token string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/marquee/config.yml)")
	flag.StringVar(&tenantID, "tenant", "", "tenant to present")
	flag.StringVar(&dashboardID, "dashboard", "", "dashboard to open first")
	flag.StringVar(&apiURL, "api-url", "", "data-file API base URL")
	flag.StringVar(&token, "token", "", "bearer token for the data-file API")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("Marquee - Dashboard Presenter\n")
		fmt.Printf("  Version: %s\n", version)
		fmt.Printf("  Commit:  %s\n", commit)
		fmt.Printf("  Built:   %s\n", buildTime)
		return
	}

	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if tenantID != "" {
		cfg.Tenant = tenantID
	}
	if dashboardID != "" {
		cfg.Dashboard = dashboardID
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	if token != "" {
		cfg.Token = token
	}

	if cfg.Tenant == "" {
		fmt.Fprintln(os.Stderr, "Error: a tenant is required (flag -tenant or MARQUEE_TENANT)")
		os.Exit(1)
	}

	if err := runTUI(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cfg cliConfig) error {
	cred := auth.NewBearer(cfg.Token)
	if cfg.Token != "" && cred.ExpiredAt(time.Now()) {
		fmt.Fprintln(os.Stderr, "Warning: bearer token is expired; requests will likely be denied")
	}

	// bubbletea owns the terminal, so the client logs nowhere.
	client := api.NewClient(cfg.APIURL, cred, cfg.RequestTimeout, logger.Nop())

	settings := resolveSettings(client, cfg)

	ctl := engine.New(client, cache.New(32), nil, settings, logger.Nop())
	defer ctl.Close()

	board := tui.NewBoardPage(ctl, cfg.Tenant)
	theater := tui.NewTheaterPage(ctl, false)
	app := tui.NewApp(board, theater)

	ctl.SelectContext(model.BoardContext{TenantID: cfg.Tenant, DashboardID: cfg.Dashboard})

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("marquee requires a real terminal")
		}
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

// resolveSettings layers configuration: built-in defaults, then the
// tenant's remote settings, then local overrides.
func resolveSettings(client *api.Client, cfg cliConfig) model.Settings {
	settings := model.DefaultSettings()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if remote, err := client.FetchSettings(ctx, cfg.Tenant); err == nil {
		settings = model.PatchFromTenant(remote).Apply(settings)
	}

	return model.PatchFromTenant(model.TenantSettings{
		SlideSeconds:   cfg.SlideSeconds,
		RefreshSeconds: cfg.RefreshSeconds,
		CacheTTLSecs:   cfg.CacheTTLSecs,
	}).Apply(settings)
}
