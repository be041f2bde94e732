// Package cli implements the netscope subcommands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"netscope/internal/capture"
	"netscope/internal/config"
	"netscope/internal/database"
	"netscope/internal/descriptions"
	"netscope/internal/store"
	"netscope/internal/watchlist"
	"netscope/internal/web"
)

// WatchOptions configures the watch command.
type WatchOptions struct {
	Interface     string
	WatchlistPath string
	DescPath      string
	AlertLogPath  string
	DBPath        string // empty disables persistence
	WebPort       int    // 0 disables the web server
	RetentionDays int
	Debug         bool
}

// Watch opens the interface, starts capture and blocks until SIGINT/SIGTERM.
func Watch(opts WatchOptions) error {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
	if opts.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	if err := capture.ValidateInterface(opts.Interface); err != nil {
		return fmt.Errorf("interface validation failed: %w", err)
	}

	st := store.New()

	// Fall back to the per-user config dir; a missing file there loads as
	// an empty rule set.
	if opts.WatchlistPath == "" {
		if p, err := config.Path("watchlist.conf"); err == nil {
			opts.WatchlistPath = p
		}
	}
	if opts.DescPath == "" {
		if p, err := config.Path("descriptions.conf"); err == nil {
			opts.DescPath = p
		}
	}

	wl := watchlist.New(logger)
	if opts.WatchlistPath != "" {
		count, err := wl.Load(opts.WatchlistPath)
		if err != nil {
			return fmt.Errorf("failed to load watchlist: %w", err)
		}
		logger.Info("Watchlist loaded", "path", opts.WatchlistPath, "rules", count)
	}
	if opts.AlertLogPath != "" {
		wl.SetLogFile(opts.AlertLogPath)
	}

	db := descriptions.New(logger)
	if opts.DescPath != "" {
		count, err := db.Load(opts.DescPath)
		if err != nil {
			return fmt.Errorf("failed to load descriptions: %w", err)
		}
		logger.Info("Description database loaded", "path", opts.DescPath, "rules", count)
	}

	coord := capture.New(st, logger)
	coord.SetWatchlist(wl)
	coord.SetDescriptions(db)

	var recorder *database.DB
	if opts.DBPath != "" {
		var err error
		recorder, err = database.New(opts.DBPath)
		if err != nil {
			return fmt.Errorf("database initialization failed: %w", err)
		}
		defer recorder.Close()
		recorder.SetInterfaceName(opts.Interface)
		coord.SetRecorder(recorder)
		logger.Info("Recording hostname events", "db", opts.DBPath)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var srv *web.Server
	if opts.WebPort > 0 {
		srv = web.NewServer(st, wl, opts.WebPort, logger)
		coord.SetAlertFunc(func(a watchlist.Alert) {
			srv.Hub().Publish("alert", a)
		})
		go func() {
			if err := srv.Start(ctx); err != nil {
				logger.Error("Web server failed", "error", err)
			}
		}()
	}

	if err := coord.Open(opts.Interface); err != nil {
		return err
	}
	defer coord.Close()
	coord.Start()

	logger.Info("Capture running", "interface", opts.Interface)

	rateTicker := time.NewTicker(time.Second)
	defer rateTicker.Stop()
	statsTicker := time.NewTicker(30 * time.Second)
	defer statsTicker.Stop()
	cleanupTicker := time.NewTicker(time.Hour)
	defer cleanupTicker.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case now := <-rateTicker.C:
			st.TickRates(now)
			if recorder != nil {
				if err := recorder.Flush(); err != nil {
					logger.Error("Failed to flush events", "error", err)
				}
			}
			if srv != nil {
				srv.Hub().Publish("stats", st.Stats())
			}

		case <-statsTicker.C:
			stats := st.Stats()
			logger.Info("[CAPTURE STATS]",
				"interface", stats.InterfaceName,
				"packets", stats.PacketsTotal,
				"bytes", stats.BytesTotal,
				"pps", fmt.Sprintf("%.1f", stats.PacketsPerSecond),
				"alerts", wl.AlertCount(),
			)
			if e := coord.Err(); e != "" && !coord.IsRunning() {
				return fmt.Errorf("capture stopped: %s", e)
			}

		case <-cleanupTicker.C:
			if recorder != nil && opts.RetentionDays > 0 {
				if err := recorder.CleanupOldEvents(opts.RetentionDays); err != nil {
					logger.Error("Cleanup failed", "error", err)
				}
			}

		case sig := <-sigChan:
			logger.Info("Shutting down", "signal", sig)
			return nil
		}
	}
}

// Install seeds the per-user config directory with the default rule files
// from sourceDir, never overwriting files the user already has.
func Install(sourceDir string) error {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	if err := config.EnsureDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	for _, name := range []string{"watchlist.conf", "descriptions.conf"} {
		ok, err := config.InstallDefault(name, sourceDir)
		if err != nil {
			logger.Warn("Default not installed", "file", name, "error", err)
			continue
		}
		if ok {
			path, _ := config.Path(name)
			logger.Info("Config file in place", "path", path)
		}
	}

	dir, err := config.Dir()
	if err != nil {
		return err
	}
	fmt.Printf("Config directory: %s\n", dir)
	return nil
}

// Interfaces lists capture-capable network interfaces.
func Interfaces() error {
	ifaces, err := capture.Interfaces()
	if err != nil {
		return err
	}

	for _, iface := range ifaces {
		state := "down"
		if iface.Up {
			state = "up"
		}
		if iface.Loopback {
			state += ", loopback"
		}
		fmt.Printf("%-16s (%s)", iface.Name, state)
		if iface.Description != "" {
			fmt.Printf("  %s", iface.Description)
		}
		fmt.Println()
		for _, addr := range iface.Addresses {
			fmt.Printf("    %s\n", addr)
		}
	}
	return nil
}

// Inspect displays recorded hostname events from the database.
func Inspect(dbPath string, limit int, ip, hostname, since, ifaceFilter string) error {
	db, err := database.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	filter := database.EventFilter{
		Limit:     limit,
		IP:        ip,
		Hostname:  hostname,
		Interface: ifaceFilter,
	}

	if since != "" {
		duration, err := time.ParseDuration(since)
		if err != nil {
			return fmt.Errorf("invalid time format for --since: %w", err)
		}
		filter.Since = time.Now().Add(-duration)
	}

	events, err := db.Events(filter)
	if err != nil {
		return fmt.Errorf("failed to query events: %w", err)
	}

	if len(events) == 0 {
		fmt.Println("No events found matching the criteria.")
		return nil
	}

	fmt.Println("Timestamp            Source IP       Dest IP         Hostname                         Proto  Category")
	fmt.Println("-------------------- --------------- --------------- -------------------------------- ------ ------------")
	for _, ev := range events {
		fmt.Printf("%-20s %-15s %-15s %-32s %-6s %s\n",
			ev.Timestamp.Format("2006-01-02 15:04:05"),
			ev.SrcIP,
			ev.DstIP,
			truncateString(ev.Hostname, 32),
			ev.AppProtocol,
			ev.Category,
		)
	}

	total, _ := db.TotalEvents()
	fmt.Printf("\nShowing %d of %d total events\n", len(events), total)
	return nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
