package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ayusman/wakegate/internal/app"
	"github.com/ayusman/wakegate/internal/config"
)

func main() {
	var (
		configPath  = flag.String("config", "", "JSON configuration file")
		source      = flag.String("source", "", "camera index, video file or stream URL")
		sequence    = flag.String("sequence", "", "comma-separated unlock sequence, e.g. MOUNTAIN,CIRCLE")
		calibration = flag.String("calibration", "", "lens calibration JSON file")
		dbPath      = flag.String("db", "", "session history database, \"none\" disables history")
		hookPath    = flag.String("hook", "", "executable run on every state transition")
		listen      = flag.String("listen", "", "status server address, e.g. :8080")
		headless    = flag.Bool("headless", false, "run without a display window")
		verbose     = flag.Bool("verbose", false, "log per-frame classification details")
	)
	flag.Parse()

	fmt.Println("wakegate - gesture unlock alarm")

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		cfg = loaded
	}

	if *source != "" {
		cfg.Source = *source
	}
	if *sequence != "" {
		cfg.Sequence = splitSequence(*sequence)
	}
	if *calibration != "" {
		cfg.Calibration = *calibration
	}
	switch *dbPath {
	case "":
	case "none":
		cfg.Database = ""
	default:
		cfg.Database = *dbPath
	}
	if *hookPath != "" {
		cfg.Hook = *hookPath
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *headless {
		cfg.Headless = true
	}
	if *verbose {
		cfg.Verbose = true
	}

	if *configPath == "" && *dbPath == "" {
		cfg.Database = defaultDatabasePath()
	}
	if cfg.Listen != "" && cfg.StaticDir == "" {
		if webDir := findWebDir(); webDir != "" {
			fmt.Printf("Serving static files from: %s\n", webDir)
			cfg.StaticDir = webDir
		}
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	runErr := a.Run(ctx)
	stop()

	if err := a.Close(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	if runErr != nil {
		log.Fatalf("wakegate failed: %v", runErr)
	}
}

func splitSequence(s string) []string {
	var names []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, strings.ToUpper(name))
		}
	}
	return names
}

// defaultDatabasePath places the history database in ~/.wakegate, falling
// back to the working directory.
func defaultDatabasePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return config.DefaultDatabase
	}

	dataDir := filepath.Join(homeDir, ".wakegate")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Printf("Failed to create data directory: %v", err)
		return config.DefaultDatabase
	}
	return filepath.Join(dataDir, config.DefaultDatabase)
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.wakegate/web.
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

	homeWebDir := filepath.Join(homeDir, ".wakegate", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
