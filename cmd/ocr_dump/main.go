package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"partyscan/pkg/config"
	"partyscan/pkg/ocr"
)

// Prints the recognized party panel text of each image, for tuning the parser.
func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: ocr_dump <image>...")
		os.Exit(2)
	}
	if lg, err := config.NewLogger("debug"); err == nil {
		ocr.SetLogger(lg)
		defer lg.Sync()
	}
	status := 0
	for _, path := range flag.Args() {
		fmt.Println(strings.Repeat("-", 50))
		fmt.Println(path)
		text, err := ocr.ExtractPartyText(path)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			status = 1
			continue
		}
		fmt.Println(text)
	}
	os.Exit(status)
}
