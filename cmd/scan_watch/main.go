package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"partyscan/models"
	"partyscan/pkg/config"
	"partyscan/pkg/directory"
	"partyscan/pkg/ocr"
	"partyscan/pkg/roster"
	"partyscan/process/scanwatch"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Scans a folder of party screenshots, logs each roster and optionally keeps watching.
func main() {
	dirFlag := flag.String("dir", "screenshots", "directory to scan for party screenshots")
	processed := flag.String("processed", "", "move scanned files here (default <dir>/processed, \"-\" to keep in place)")
	watch := flag.Bool("watch", false, "Watch directory for new files")
	workers := flag.Int("workers", 0, "Worker pool size (default NumCPU)")
	username := flag.String("user", "", "record uploads for this user and use their main character")
	mainName := flag.String("main-name", "", "main character name (overrides -user)")
	mainServer := flag.String("main-server", "", "main character server")
	dryRun := flag.Bool("dry-run", false, "no database: resolve against the live source only")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	lg, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer lg.Sync()
	log := lg.Sugar()
	ocr.SetLogger(lg)

	var (
		db    *gorm.DB
		cache directory.Cache
		live  roster.Directory
		user  models.User
	)
	if !*dryRun {
		db, err = cfg.OpenDB()
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		cache = directory.NewStore(db, lg)
		if *username != "" {
			if err := db.Where("username = ?", *username).First(&user).Error; err != nil {
				log.Fatalf("user %s not found: %v", *username, err)
			}
		}
	}
	if cfg.LiveSearchURL != "" {
		live = directory.NewLiveClient(cfg.LiveSearchURL, cfg.LiveSearchTimeout, lg)
	}

	var pinned *roster.Identity
	switch {
	case *mainName != "":
		pinned = &roster.Identity{Name: *mainName, Location: *mainServer}
	case user.MainCharacterName != "":
		pinned = &roster.Identity{Name: user.MainCharacterName, Location: user.MainCharacterServer}
	}

	procDir := *processed
	switch procDir {
	case "":
		procDir = filepath.Join(*dirFlag, "processed")
	case "-":
		procDir = ""
	}

	p := scanwatch.New(scanwatch.Options{
		Dir:          *dirFlag,
		ProcessedDir: procDir,
		Workers:      *workers,
		Pinned:       pinned,
		Recognize:    ocr.ExtractPartyText,
		Scanner:      roster.NewScanner(directory.NewMerged(cache, live, lg), roster.Config{MaxConcurrentLookups: cfg.MaxLookups, Logger: lg}),
		Logger:       lg,
		OnResult: func(r scanwatch.Result) {
			printResult(r)
			if db != nil && user.ID != 0 {
				recordUpload(db, user.ID, *dirFlag, r, log)
			}
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *watch {
		if err := p.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("watch failed: %v", err)
		}
		return
	}
	files := p.ListImageFiles()
	log.Infof("Scanning %d files", len(files))
	p.Run(ctx, files, nil)
}

func printResult(r scanwatch.Result) {
	if r.Err != nil {
		fmt.Printf("%s: error: %v\n", r.File, r.Err)
		return
	}
	fmt.Printf("%s: grade=%s total=%.0f pending=%d\n", r.File, r.Summary.Grade, r.Summary.TotalPower, len(r.Summary.PendingSelections))
	for _, e := range r.Summary.Entries {
		mark := " "
		if e.IsTopScorer {
			mark = "*"
		}
		status := "?"
		if e.Resolved {
			status = fmt.Sprintf("lv%d %.0f", e.Level, e.PowerScore)
		}
		fmt.Printf("  %s %d %s@%s %s\n", mark, e.SlotIndex, e.Name, e.Location, status)
	}
}

func recordUpload(db *gorm.DB, userID uint, dir string, r scanwatch.Result, log *zap.SugaredLogger) {
	path := r.Moved
	if path == "" {
		path = filepath.Join(dir, r.File)
	}
	up := models.Upload{UserID: userID, FileName: r.File, StorePath: filepath.ToSlash(path)}
	if r.Err != nil {
		up.Failed = true
		up.FailedReason = r.Err.Error()
	}
	if err := db.Create(&up).Error; err != nil {
		log.Warnf("record upload %s: %v", r.File, err)
	}
}
