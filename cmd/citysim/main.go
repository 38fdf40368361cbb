package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/citysim/core/internal/city"
	"github.com/citysim/core/internal/config"
	"github.com/citysim/core/internal/data"
	"github.com/citysim/core/internal/feed"
	"github.com/citysim/core/internal/grid"
	"github.com/citysim/core/internal/persist"
	"github.com/citysim/core/internal/scripting"
	"github.com/citysim/core/internal/session"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              CitySim Core                 \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mSession:\033[0m %s\n\n", name)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := humanize.Comma(int64(count))
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ──────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("CITYSIM_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	// 3. Data and scripts
	printSection("Data")
	catalog, err := data.LoadBuildingTable(cfg.Data.Buildings)
	if err != nil {
		return fmt.Errorf("building catalog: %w", err)
	}
	printStat("Building templates", catalog.Count())

	lua, err := scripting.NewEngine(cfg.Data.Scripts, log.Named("lua"))
	if err != nil {
		return fmt.Errorf("scripts: %w", err)
	}
	defer lua.Close()
	if lua.Has("calc_grid_happiness") {
		printOK("Lua grid happiness loaded")
	} else {
		printOK("Lua grid happiness missing, using mean")
	}
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. Session
	sess := session.New(cfg.Simulation, catalog, lua, log)
	c, err := sess.NewCity("")
	if err != nil {
		return err
	}
	if err := seedCity(sess, c); err != nil {
		return fmt.Errorf("seed city: %w", err)
	}

	// 5. Stats journal
	printSection("Stats journal")
	var journal *persist.Journal
	if cfg.Database.Enabled {
		dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		db, err := persist.NewDB(dbCtx, cfg.Database, log)
		if err != nil {
			cancel()
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		version, err := persist.RunMigrations(dbCtx, db.Pool)
		cancel()
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK(fmt.Sprintf("Schema at version %d", version))

		journal = persist.NewJournal(sess.ID(), persist.NewStatsRepo(db), cfg.Stats.FlushEvery, cfg.Stats.MaxPending, log)
		sess.AddObserver(session.ObserverFunc(journal.Record))
	} else {
		printOK("Disabled")
	}
	fmt.Println()

	// 6. Live feed
	var feedSrv *feed.Server
	if cfg.Feed.Enabled {
		hub := feed.NewHub(log.Named("feed"))
		go hub.Run(ctx)
		feedSrv = feed.NewServer(cfg.Feed.BindAddress, hub, log)
		addr, err := feedSrv.Start()
		if err != nil {
			return fmt.Errorf("feed: %w", err)
		}
		sess.AddObserver(session.ObserverFunc(func(_ context.Context, cycle uint64, stats []city.Stats) error {
			return hub.Publish(feed.Frame{Type: "stats", Cycle: cycle, Payload: stats})
		}))
		printReady(fmt.Sprintf("Feed listening on ws://%s/ws", addr))
	}

	// 7. Run until signalled
	printSection("Ready")
	printReady(fmt.Sprintf("Session %s", sess.ID()))
	printReady(fmt.Sprintf("Tick loop started (tick: %s)", cfg.Server.TickRate))
	fmt.Println()

	runErr := sess.Run(ctx, cfg.Server.TickRate)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if journal != nil {
		if err := journal.Flush(shutdownCtx); err != nil {
			log.Error("final stats flush failed", zap.Error(err))
		}
	}
	if feedSrv != nil {
		if err := feedSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("feed shutdown", zap.Error(err))
		}
	}

	for _, st := range sess.Stats() {
		log.Info("city summary",
			zap.String("owner", st.Owner),
			zap.String("cycles", humanize.Comma(int64(sess.Manager().Cycle()))),
			zap.Int("residents", st.Residents),
			zap.Int("demand", st.Demand),
			zap.Float64("happiness", st.Happiness),
		)
	}
	log.Info("session stopped")
	return runErr
}

// seedCity lays out the starter grid: one power plant and a row of houses.
func seedCity(sess *session.Session, c *city.City) error {
	if _, err := c.CreateGrid(16, 16, grid.Vec3{}); err != nil {
		return err
	}
	if _, err := sess.Build(c, 0, 0, 0, "power_plant"); err != nil {
		return err
	}
	for x := 0; x < 4; x++ {
		if _, err := sess.Build(c, 0, x, 2, "house"); err != nil {
			return err
		}
	}
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
