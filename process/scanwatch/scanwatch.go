// Package scanwatch runs the party scan pipeline over a folder of screenshots,
// once over the files present and optionally on every new file.
package scanwatch

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"partyscan/pkg/roster"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	debounceTick   = 250 * time.Millisecond
	debounceSettle = 300 * time.Millisecond
)

// Recognizer turns an image file into OCR text.
type Recognizer func(path string) (string, error)

// Result is the outcome for one screenshot.
type Result struct {
	File    string
	Text    string
	Summary roster.RosterSummary
	Err     error
	// Moved is the processed path when the file was moved out of the watched folder.
	Moved string
}

type Options struct {
	Dir string
	// ProcessedDir receives files after a successful scan; empty leaves them in place.
	ProcessedDir string
	// MaxProcessedBytes triggers a downscale when moving larger files; <= 0 uses 1 MB.
	MaxProcessedBytes int64
	Workers           int
	Pinned            *roster.Identity
	Recognize         Recognizer
	Scanner           *roster.Scanner
	Logger            *zap.Logger
	// OnResult is called from worker goroutines.
	OnResult func(Result)
}

type Processor struct {
	opts Options
	log  *zap.SugaredLogger
}

func New(opts Options) *Processor {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.MaxProcessedBytes <= 0 {
		opts.MaxProcessedBytes = 1_000_000
	}
	lg := opts.Logger
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Processor{opts: opts, log: lg.Sugar()}
}

// ListImageFiles returns the supported images in the folder, sorted by name.
func (p *Processor) ListImageFiles() []string {
	entries, err := os.ReadDir(p.opts.Dir)
	if err != nil {
		p.log.Warnf("read dir %s: %v", p.opts.Dir, err)
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func isSupportedExt(name string) bool {
	// ignore OCR-generated temp files to avoid recursive processing
	if strings.Contains(name, ".ocr.") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp":
		return true
	}
	return false
}

// Run processes initial and then every name received on extra until extra is closed
// or ctx is done. It returns once every worker has finished.
func (p *Processor) Run(ctx context.Context, initial []string, extra <-chan string) {
	fileCh := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < p.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range fileCh {
				res := p.processFile(ctx, name)
				if p.opts.OnResult != nil {
					p.opts.OnResult(res)
				}
			}
		}()
	}
	p.feed(ctx, fileCh, initial, extra)
	close(fileCh)
	wg.Wait()
}

func (p *Processor) feed(ctx context.Context, fileCh chan<- string, initial []string, extra <-chan string) {
	send := func(name string) bool {
		select {
		case fileCh <- name:
			return true
		case <-ctx.Done():
			return false
		}
	}
	for _, f := range initial {
		if !send(f) {
			return
		}
	}
	if extra == nil {
		return
	}
	for {
		select {
		case name, ok := <-extra:
			if !ok || !send(name) {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Watch processes the files present, then every new file until ctx is done.
func (p *Processor) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(p.opts.Dir); err != nil {
		return err
	}
	p.log.Infof("Watching %s (debounced) ...", p.opts.Dir)

	fileCh := make(chan string)
	go p.debounce(ctx, w, fileCh)
	p.Run(ctx, p.ListImageFiles(), fileCh)
	return ctx.Err()
}

// debounce emits a file name once it has stopped changing. It closes out when done.
func (p *Processor) debounce(ctx context.Context, w *fsnotify.Watcher, out chan<- string) {
	defer close(out)
	pending := map[string]time.Time{}
	ticker := time.NewTicker(debounceTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if !isSupportedExt(name) {
				continue
			}
			pending[name] = time.Now()
		case <-ticker.C:
			now := time.Now()
			for name, t := range pending {
				if now.Sub(t) <= debounceSettle {
					continue
				}
				delete(pending, name)
				select {
				case out <- name:
				case <-ctx.Done():
					return
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			p.log.Warnf("watch error: %v", err)
		}
	}
}

func (p *Processor) processFile(ctx context.Context, name string) Result {
	res := Result{File: name}
	path := filepath.Join(p.opts.Dir, name)
	text, err := p.opts.Recognize(path)
	if err != nil {
		p.log.Infof("OCR fail %s: %v", name, err)
		res.Err = err
		return res
	}
	res.Text = text
	sess, err := p.opts.Scanner.Run(ctx, text, p.opts.Pinned)
	if err != nil {
		res.Err = err
		return res
	}
	res.Summary = sess.Summary()
	p.log.Infof("SCAN file=%s entries=%d pending=%d total=%.0f grade=%s",
		name, len(res.Summary.Entries), len(res.Summary.PendingSelections), res.Summary.TotalPower, res.Summary.Grade)

	if p.opts.ProcessedDir != "" {
		dst, err := moveToProcessed(path, p.opts.ProcessedDir, name, p.opts.MaxProcessedBytes)
		if err != nil {
			p.log.Warnf("failed to move processed file %s: %v", name, err)
		} else {
			res.Moved = dst
		}
	}
	return res
}
