package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"partyscan/models"
	"partyscan/pkg/config"
	"partyscan/pkg/ocr"
	"partyscan/pkg/roster"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxImageSize = 5 * 1024 * 1024

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".bmp": true, ".gif": true}

// scanAPI serves the scan, selection and directory endpoints.
type scanAPI struct {
	dir        roster.Directory
	scanner    *roster.Scanner
	accounts   accountStore
	scans      *scanRegistry
	recognize  func(path string) (string, error)
	uploadBase string
	log        *zap.SugaredLogger
}

func newScanAPI(dir roster.Directory, accounts accountStore, cfg config.Config, lg *zap.Logger) *scanAPI {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &scanAPI{
		dir:        dir,
		scanner:    roster.NewScanner(dir, roster.Config{MaxConcurrentLookups: cfg.MaxLookups, Logger: lg}),
		accounts:   accounts,
		scans:      newScanRegistry(),
		recognize:  ocr.ExtractPartyText,
		uploadBase: cfg.UploadBase,
		log:        lg.Sugar(),
	}
}

type scanRecord struct {
	ID        string
	Owner     string
	CreatedAt time.Time
	session   *roster.Session
}

type runningScan struct {
	id     string
	cancel context.CancelFunc
}

// scanRegistry keeps the latest finished scan per user. Starting a scan cancels the
// user's scan in flight; finishing one discards the user's previous session.
type scanRegistry struct {
	mu      sync.Mutex
	byID    map[string]*scanRecord
	latest  map[string]string // owner -> scan id
	running map[string]runningScan
}

func newScanRegistry() *scanRegistry {
	return &scanRegistry{
		byID:    map[string]*scanRecord{},
		latest:  map[string]string{},
		running: map[string]runningScan{},
	}
}

// begin starts a scan for owner. done must be called when the scan returns.
func (r *scanRegistry) begin(parent context.Context, owner string) (ctx context.Context, id string, done func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.running[owner]; ok {
		prev.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	id = uuid.NewString()
	r.running[owner] = runningScan{id: id, cancel: cancel}
	return ctx, id, func() {
		r.mu.Lock()
		if cur, ok := r.running[owner]; ok && cur.id == id {
			delete(r.running, owner)
		}
		r.mu.Unlock()
		cancel()
	}
}

// finish stores sess unless a newer scan for owner has started since.
func (r *scanRegistry) finish(owner, id string, sess *roster.Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.running[owner]; !ok || cur.id != id {
		return false
	}
	if prev, ok := r.latest[owner]; ok {
		delete(r.byID, prev)
	}
	r.byID[id] = &scanRecord{ID: id, Owner: owner, CreatedAt: time.Now(), session: sess}
	r.latest[owner] = id
	return true
}

func (r *scanRegistry) get(id, owner string) (*scanRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok || rec.Owner != owner {
		return nil, false
	}
	return rec, true
}

type scanResponse struct {
	ID         string                   `json:"id"`
	CreatedAt  time.Time                `json:"created_at"`
	Candidates []roster.ParsedCandidate `json:"candidates"`
	Summary    roster.RosterSummary     `json:"summary"`
}

func newScanResponse(rec *scanRecord) scanResponse {
	return scanResponse{
		ID:         rec.ID,
		CreatedAt:  rec.CreatedAt,
		Candidates: rec.session.Candidates(),
		Summary:    rec.session.Summary(),
	}
}

// scanError is an input failure with the status to report.
type scanError struct {
	status int
	msg    string
}

func (e *scanError) Error() string { return e.msg }

// createScanHandler accepts either a multipart screenshot ("image") or JSON {"text", "pinned"}.
func (a *scanAPI) createScanHandler(c *gin.Context) {
	username := currentUsername(c)
	ctx, id, done := a.scans.begin(c.Request.Context(), username)
	defer done()

	var (
		text   string
		pinned *roster.Identity
		err    error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		text, err = a.recognizeUpload(c, id, username)
	} else {
		var req struct {
			Text   string           `json:"text"`
			Pinned *roster.Identity `json:"pinned"`
		}
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			err = &scanError{http.StatusBadRequest, bindErr.Error()}
		}
		text, pinned = req.Text, req.Pinned
	}
	if err != nil {
		var se *scanError
		if errors.As(err, &se) {
			c.JSON(se.status, gin.H{"error": se.msg})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if pinned == nil {
		pinned, err = a.accounts.MainCharacter(ctx, username)
		if err != nil {
			a.log.Warnf("scan %s: main character for %s: %v", id, username, err)
		}
	}

	sess, err := a.scanner.Run(ctx, text, pinned)
	switch {
	case errors.Is(err, roster.ErrNoText):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no text recognized"})
		return
	case errors.Is(err, context.Canceled):
		c.JSON(http.StatusConflict, gin.H{"error": "scan superseded by a newer scan"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !a.scans.finish(username, id, sess) {
		c.JSON(http.StatusConflict, gin.H{"error": "scan superseded by a newer scan"})
		return
	}
	rec, _ := a.scans.get(id, username)
	c.JSON(http.StatusOK, newScanResponse(rec))
}

// recognizeUpload stores the uploaded screenshot under the scan id and runs OCR on it.
func (a *scanAPI) recognizeUpload(c *gin.Context, id, username string) (string, error) {
	file, err := c.FormFile("image")
	if err != nil {
		return "", &scanError{http.StatusBadRequest, "image missing"}
	}
	if file.Size > maxImageSize {
		return "", &scanError{http.StatusBadRequest, "file too large (max 5MB)"}
	}
	name := filepath.Base(file.Filename)
	if !imageExts[strings.ToLower(filepath.Ext(name))] {
		return "", &scanError{http.StatusBadRequest, "unsupported image type"}
	}
	dir := filepath.Join(a.uploadBase, "scans", id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.New("mkdir failed")
	}
	fullPath := filepath.Join(dir, name)
	if err := c.SaveUploadedFile(file, fullPath); err != nil {
		return "", errors.New("save failed")
	}

	up := models.Upload{
		ScanID:      id,
		FileName:    name,
		StorePath:   filepath.ToSlash(filepath.Join("scans", id, name)),
		ContentType: file.Header.Get("Content-Type"),
	}
	text, err := a.recognize(fullPath)
	if err != nil {
		up.Failed = true
		up.FailedReason = err.Error()
	}
	if recErr := a.accounts.RecordUpload(c.Request.Context(), username, up); recErr != nil {
		a.log.Warnf("scan %s: record upload %s: %v", id, name, recErr)
	}
	if err != nil {
		a.log.Infof("scan %s: OCR %s failed: %v", id, name, err)
		if errors.Is(err, ocr.ErrNoText) {
			return "", &scanError{http.StatusUnprocessableEntity, "no text recognized"}
		}
		return "", &scanError{http.StatusUnprocessableEntity, "could not read image"}
	}
	return text, nil
}

func (a *scanAPI) getScanHandler(c *gin.Context) {
	rec, ok := a.scans.get(c.Param("id"), currentUsername(c))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "scan not found"})
		return
	}
	c.JSON(http.StatusOK, newScanResponse(rec))
}

// commitSelectionHandler resolves one pending selection. The entity is picked from the
// slot's offered options by entity_id, or by name when the option has no id.
func (a *scanAPI) commitSelectionHandler(c *gin.Context) {
	rec, ok := a.scans.get(c.Param("id"), currentUsername(c))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "scan not found"})
		return
	}
	var req struct {
		SlotIndex *int   `json:"slot_index" binding:"required"`
		Location  string `json:"location" binding:"required"`
		EntityID  string `json:"entity_id"`
		Name      string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	slot := *req.SlotIndex
	choice := roster.Entity{ID: req.EntityID, Name: req.Name}
	if p, ok := rec.session.Pending(slot); ok {
		for _, o := range p.Options {
			if o.Entity == nil || o.Location != req.Location {
				continue
			}
			if (req.EntityID != "" && o.Entity.ID == req.EntityID) || (req.EntityID == "" && o.Entity.Name == req.Name) {
				choice = *o.Entity
				break
			}
		}
	}

	sum, err := rec.session.Commit(slot, req.Location, choice)
	switch {
	case errors.Is(err, roster.ErrUnknownSlot):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, roster.ErrNoPendingSelection):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, roster.ErrInvalidChoice):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	a.log.Infof("scan %s: slot %d committed to %s@%s", rec.ID, slot, choice.Name, req.Location)
	c.JSON(http.StatusOK, sum)
}

// searchCharactersHandler passes a name search through to the directory.
func (a *scanAPI) searchCharactersHandler(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
		return
	}
	serverID := 0
	if s := strings.TrimSpace(c.Query("server")); s != "" {
		srv, ok := a.scanner.Normalizer().Lookup(s)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown server"})
			return
		}
		serverID = srv.ID
	}
	ents, err := a.dir.Lookup(c.Request.Context(), name, serverID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "directory unavailable"})
		return
	}
	if ents == nil {
		ents = []roster.Entity{}
	}
	c.JSON(http.StatusOK, ents)
}

func (a *scanAPI) listServersHandler(c *gin.Context) {
	c.JSON(http.StatusOK, roster.Servers)
}

func (a *scanAPI) meHandler(c *gin.Context) {
	username := currentUsername(c)
	mc, err := a.accounts.MainCharacter(c.Request.Context(), username)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": username, "role": c.GetString("role"), "main_character": mc})
}

// setMainCharacterHandler stores the pinned identity. The server may be a known alias
// as long as it names exactly one server.
func (a *scanAPI) setMainCharacterHandler(c *gin.Context) {
	var req struct {
		Name   string `json:"name" binding:"required"`
		Server string `json:"server" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	locs := a.scanner.Normalizer().Normalize(req.Server, nil)
	if len(locs) != 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown or ambiguous server", "candidates": locs})
		return
	}
	id := roster.Identity{Name: strings.TrimSpace(req.Name), Location: locs[0]}
	if err := a.accounts.SetMainCharacter(c.Request.Context(), currentUsername(c), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save main character"})
		return
	}
	c.JSON(http.StatusOK, id)
}
