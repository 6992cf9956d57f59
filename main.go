package main

import (
	"fmt"
	"os"

	"partyscan/pkg/config"
	"partyscan/pkg/directory"
	"partyscan/pkg/ocr"
	"partyscan/pkg/roster"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var jwtSecret []byte // loaded from env JWT_SECRET (fallback to dev default)

var logger = zap.NewNop().Sugar()

func main() {
	// Auto-load ./.env if present before reading vars
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
	logger = lg.Sugar()
	ocr.SetLogger(lg)
	jwtSecret = []byte(cfg.JWTSecret)

	// Support a lightweight migrate command: `./partyscan migrate`
	// It runs AutoMigrate and seeding then exits. Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		initDB(cfg)
		fmt.Println("migration and seeding completed")
		return
	}

	initDB(cfg)

	api := newScanAPI(newDirectory(cfg, lg), dbAccounts{}, cfg, lg)
	r := gin.Default()
	setupRoutes(r, api)

	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatalf("server stopped: %v", err)
	}
}

// newDirectory merges the postgres cache with the live search source when one is configured.
func newDirectory(cfg config.Config, lg *zap.Logger) roster.Directory {
	store := directory.NewStore(db, lg)
	var live roster.Directory
	if cfg.LiveSearchURL != "" {
		live = directory.NewLiveClient(cfg.LiveSearchURL, cfg.LiveSearchTimeout, lg)
	} else {
		logger.Warnf("LIVE_SEARCH_URL not set; resolving against the local cache only")
	}
	return directory.NewMerged(store, live, lg)
}
