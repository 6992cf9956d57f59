package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"partyscan/pkg/config"
	"partyscan/pkg/directory"
	"partyscan/pkg/roster"
)

// Runs the roster pipeline over recognized text from a file (or stdin) and prints the summary.
func main() {
	path := flag.String("path", "-", "text file with OCR output, - for stdin")
	mainName := flag.String("main-name", "", "main character name")
	mainServer := flag.String("main-server", "", "main character server")
	useCache := flag.Bool("cache", false, "also search the postgres character cache (needs DB_DSN)")
	autoPick := flag.Bool("auto-pick", false, "commit the first option of every pending selection")
	timeout := flag.Duration("timeout", 30*time.Second, "overall timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}
	lg, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		fail(err)
	}
	defer lg.Sync()

	text, err := readText(*path)
	if err != nil {
		fail(err)
	}

	var cache directory.Cache
	if *useCache {
		db, err := cfg.OpenDB()
		if err != nil {
			fail(err)
		}
		cache = directory.NewStore(db, lg)
	}
	var live roster.Directory
	if cfg.LiveSearchURL != "" {
		live = directory.NewLiveClient(cfg.LiveSearchURL, cfg.LiveSearchTimeout, lg)
	}
	if cache == nil && live == nil {
		fail(fmt.Errorf("no directory: set LIVE_SEARCH_URL or pass -cache"))
	}

	var pinned *roster.Identity
	if *mainName != "" {
		pinned = &roster.Identity{Name: *mainName, Location: *mainServer}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	scanner := roster.NewScanner(directory.NewMerged(cache, live, lg), roster.Config{MaxConcurrentLookups: cfg.MaxLookups, Logger: lg})
	sess, err := scanner.Run(ctx, text, pinned)
	if err != nil {
		fail(err)
	}

	sum := sess.Summary()
	if *autoPick {
		for _, p := range sum.PendingSelections {
			opt := p.Options[0]
			if sum, err = sess.Commit(p.SlotIndex, opt.Location, *opt.Entity); err != nil {
				fail(err)
			}
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]any{"candidates": sess.Candidates(), "summary": sum})
}

func readText(path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "scan_text:", err)
	os.Exit(1)
}
