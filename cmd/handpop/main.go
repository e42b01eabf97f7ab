package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/ayusman/handpop/internal/app"
	"github.com/ayusman/handpop/internal/audio"
	"github.com/ayusman/handpop/internal/config"
	"github.com/ayusman/handpop/internal/hook"
	"github.com/ayusman/handpop/internal/render"
	"github.com/ayusman/handpop/internal/server"
	"github.com/ayusman/handpop/internal/store"
	"github.com/ayusman/handpop/internal/tray"
)

func main() {
	fmt.Println("handpop - pop the target with your index finger")

	configPath := flag.String("config", "", "path to a JSON config file")
	cameraID := flag.Int("camera", -1, "camera device index")
	sprite := flag.String("sprite", "", "target sprite image")
	dbPath := flag.String("db", "", "session database (empty for ~/.handpop/handpop.db, \"none\" to disable)")
	listen := flag.String("listen", "", "address for the live dashboard, e.g. :8080")
	replay := flag.String("replay", "", "play landmarks from a recording instead of the model")
	record := flag.String("record", "", "append every detection to a recording")
	sound := flag.Bool("sound", false, "play a pop on every hit")
	withTray := flag.Bool("tray", false, "show a system tray menu")
	headless := flag.Bool("headless", false, "run without a game window")
	hooksDir := flag.String("hooks", "", "directory of hooks run on hits and pauses")
	seed := flag.Uint64("seed", 0, "spawn seed (0 for random)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "camera":
			cfg.CameraID = *cameraID
		case "sprite":
			cfg.SpritePath = *sprite
		case "db":
			cfg.DBPath = *dbPath
		case "listen":
			cfg.Listen = *listen
		case "replay":
			cfg.ReplayPath = *replay
		case "record":
			cfg.RecordPath = *record
		case "sound":
			cfg.Sound = *sound
		case "tray":
			cfg.Tray = *withTray
		case "headless":
			cfg.Headless = *headless
		case "seed":
			cfg.Seed = *seed
		case "hooks":
			cfg.HooksDir = *hooksDir
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := cfg.CheckPlatform(runtime.GOOS); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	game := app.New(cfg)

	det, err := app.OpenDetector(cfg)
	if err != nil {
		log.Fatalf("Failed to open detector: %v", err)
	}
	game.SetDetector(det)
	if cfg.Headless {
		game.SetDisplay(render.NewHeadless())
	}
	if cfg.ReplayPath != "" {
		game.SetSource("replay:" + filepath.Base(cfg.ReplayPath))
	}

	st := openStore(cfg.DBPath)
	if st != nil {
		defer st.Close()
		game.SetStore(st)
	}

	game.SetSound(audio.Open(cfg.Sound, cfg.Volume))

	if cfg.HooksDir != "" {
		manager := hook.NewManager(cfg.HooksDir)
		if err := manager.Discover(); err != nil {
			log.Printf("Failed to discover hooks: %v", err)
		}
		fmt.Printf("Loaded %d hooks from %s\n", len(manager.List()), manager.Dir())
		dispatcher := hook.NewDispatcher(manager, hook.NewExecutor(time.Duration(cfg.HookTimeoutMs)*time.Millisecond))
		defer dispatcher.Close()
		game.AddSnapshotSink(dispatcher)
	}

	if cfg.Listen != "" {
		feed := server.NewFeed()
		game.AddSnapshotSink(feed)
		game.AddFrameSink(feed)

		webDir := findWebDir()
		if webDir != "" {
			fmt.Printf("Serving static files from: %s\n", webDir)
		}
		srv := server.New(server.Config{
			StaticDir: webDir,
			Store:     st,
			Feed:      feed,
		})

		fmt.Printf("Starting server on %s\n", cfg.Listen)
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.Listen); err != nil {
				log.Printf("Server failed: %v", err)
			}
		}()
	}

	if !cfg.Tray {
		exit(game.Run(ctx))
		return
	}

	// The tray owns the main thread; the game runs beside it and stops the
	// tray when it ends. HighGUI calls must stay on one OS thread.
	t := tray.New()
	if st != nil {
		if best, err := st.Sessions().Best(); err == nil {
			t.SetBest(best.Score)
		}
	}
	t.OnToggle(game.SetEnabled)
	t.OnQuit(stop)
	if cfg.Listen != "" {
		t.OnDashboard(func() { fmt.Printf("Dashboard: http://localhost%s/\n", cfg.Listen) })
	}
	game.AddSnapshotSink(t)

	runErr := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		runErr <- game.Run(ctx)
		t.Quit()
	}()
	t.Run()

	stop()
	exit(<-runErr)
}

// exit reports how the game ended. An interrupt is a normal way to stop.
func exit(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	log.Fatalf("Game ended: %v", err)
}

// openStore opens the session database. A store that cannot be opened is
// logged and the game runs without history.
func openStore(path string) *store.Store {
	if path == "none" {
		return nil
	}
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Printf("No home directory, session history disabled: %v", err)
			return nil
		}
		dbDir := filepath.Join(homeDir, ".handpop")
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			log.Printf("Failed to create data directory: %v", err)
			return nil
		}
		path = filepath.Join(dbDir, "handpop.db")
	}

	st, err := store.New(path)
	if err != nil {
		log.Printf("Failed to initialize store, session history disabled: %v", err)
		return nil
	}
	return st
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.handpop/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".handpop", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
