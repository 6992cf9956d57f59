package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"partyscan/pkg/config"
	"partyscan/process/report"
)

func main() {
	username := flag.String("username", "admin", "username to report for")
	month := flag.String("month", time.Now().UTC().Format("2006-01"), "month to report (YYYY-MM)")
	list := flag.Bool("list", false, "list matching uploads")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	db, err := cfg.OpenDB()
	if err != nil {
		fmt.Fprintln(os.Stderr, "DB_DSN not set or unreachable; export DB_DSN and retry:", err)
		os.Exit(2)
	}
	if err := report.Run(db, os.Stdout, *username, *month, *list); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
