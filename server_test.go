package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"partyscan/models"
	"partyscan/pkg/config"
	"partyscan/pkg/ocr"
	"partyscan/pkg/roster"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string, contentType string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

// memDirectory answers exact-name lookups; serverID 0 matches every server.
type memDirectory struct {
	ents []roster.Entity
}

func (d *memDirectory) Lookup(_ context.Context, name string, serverID int) ([]roster.Entity, error) {
	var out []roster.Entity
	for _, e := range d.ents {
		if e.Name == name && (serverID == 0 || e.ServerID == serverID) {
			out = append(out, e)
		}
	}
	return out, nil
}

type memAccounts struct {
	mu      sync.Mutex
	main    map[string]*roster.Identity
	uploads []models.Upload
}

func (a *memAccounts) MainCharacter(_ context.Context, username string) (*roster.Identity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.main[username], nil
}

func (a *memAccounts) SetMainCharacter(_ context.Context, username string, id roster.Identity) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.main[username] = &id
	return nil
}

func (a *memAccounts) RecordUpload(_ context.Context, _ string, up models.Upload) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.uploads = append(a.uploads, up)
	return nil
}

type testServer struct {
	r        *gin.Engine
	api      *scanAPI
	accounts *memAccounts
	token    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwtSecret = []byte("test-secret")

	dir := &memDirectory{ents: []roster.Entity{
		{ID: "me", Name: "나나", ServerID: 1001, Level: 60, PowerScore: 4200},
		{ID: "a", Name: "민수", ServerID: 2001, Level: 40, PowerScore: 2000},
		{ID: "b", Name: "민수", ServerID: 2021, Level: 55, PowerScore: 4000},
		{ID: "c", Name: "철수", ServerID: 1001, Level: 50, PowerScore: 3000},
	}}
	accts := &memAccounts{main: map[string]*roster.Identity{
		"tester": {Name: "나나", Location: "시엘"},
	}}
	api := newScanAPI(dir, accts, config.Config{MaxLookups: 2, UploadBase: t.TempDir()}, nil)
	r := gin.New()
	setupRoutes(r, api)

	token, err := issueAccessToken("tester", "user", time.Hour)
	require.NoError(t, err)
	return &testServer{r: r, api: api, accounts: accts, token: token}
}

func (s *testServer) scan(t *testing.T, text string) scanResponse {
	t.Helper()
	resp := performRequest(s.r, http.MethodPost, "/scans", jsonBody(t, map[string]string{"text": text}), s.token, "application/json")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var out scanResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out
}

func TestScanRequiresAuth(t *testing.T) {
	s := newTestServer(t)
	resp := performRequest(s.r, http.MethodPost, "/scans", jsonBody(t, map[string]string{"text": "x"}), "", "application/json")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = performRequest(s.r, http.MethodGet, "/me", nil, "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestScanFromTextAndCommit(t *testing.T) {
	s := newTestServer(t)
	out := s.scan(t, "민수[이스] 철수[시엘]")

	require.Len(t, out.Candidates, 3)
	assert.True(t, out.Candidates[0].IsPinned)
	require.Len(t, out.Summary.Entries, 3)
	assert.Equal(t, "나나", out.Summary.Entries[0].Name)
	require.Len(t, out.Summary.PendingSelections, 1)
	p := out.Summary.PendingSelections[0]
	assert.Equal(t, 1, p.SlotIndex)
	assert.Equal(t, roster.LocationChoice, p.Kind)
	require.Len(t, p.Options, 2)

	resp := performRequest(s.r, http.MethodGet, "/scans/"+out.ID, nil, s.token, "")
	require.Equal(t, http.StatusOK, resp.Code)

	sel := "/scans/" + out.ID + "/selections"
	resp = performRequest(s.r, http.MethodPost, sel, jsonBody(t, map[string]any{"slot_index": 1, "location": "이스라펠", "entity_id": "zzz"}), s.token, "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = performRequest(s.r, http.MethodPost, sel, jsonBody(t, map[string]any{"slot_index": 7, "location": "이스라펠", "entity_id": "a"}), s.token, "application/json")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = performRequest(s.r, http.MethodPost, sel, jsonBody(t, map[string]any{"location": "이스라펠"}), s.token, "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = performRequest(s.r, http.MethodPost, sel, jsonBody(t, map[string]any{"slot_index": 1, "location": "이스할겐", "entity_id": "b"}), s.token, "application/json")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var sum roster.RosterSummary
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &sum))
	assert.Empty(t, sum.PendingSelections)
	assert.Equal(t, 4200.0+4000+3000, sum.TotalPower)
	assert.Equal(t, roster.GradeB, sum.Grade)

	resp = performRequest(s.r, http.MethodPost, sel, jsonBody(t, map[string]any{"slot_index": 1, "location": "이스할겐", "entity_id": "b"}), s.token, "application/json")
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestScanEmptyText(t *testing.T) {
	s := newTestServer(t)
	resp := performRequest(s.r, http.MethodPost, "/scans", jsonBody(t, map[string]string{"text": "  "}), s.token, "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestNewScanDiscardsPrevious(t *testing.T) {
	s := newTestServer(t)
	first := s.scan(t, "철수[시엘]")
	second := s.scan(t, "민수[이스라펠]")
	require.NotEqual(t, first.ID, second.ID)

	resp := performRequest(s.r, http.MethodGet, "/scans/"+first.ID, nil, s.token, "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	resp = performRequest(s.r, http.MethodGet, "/scans/"+second.ID, nil, s.token, "")
	assert.Equal(t, http.StatusOK, resp.Code)

	other, err := issueAccessToken("other", "user", time.Hour)
	require.NoError(t, err)
	resp = performRequest(s.r, http.MethodGet, "/scans/"+second.ID, nil, other, "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestScanPinnedOverride(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{"text": "로캐[서버명]", "pinned": map[string]string{"name": "철수", "location": "시엘"}}
	resp := performRequest(s.r, http.MethodPost, "/scans", jsonBody(t, body), s.token, "application/json")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var out scanResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	require.Len(t, out.Candidates, 2)
	assert.Equal(t, "철수", out.Candidates[0].Name)
	assert.Equal(t, []string{"시엘"}, out.Candidates[1].PossibleLocations)
}

func multipartImage(t *testing.T, name string) (io.Reader, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	w, err := mw.CreateFormFile("image", name)
	require.NoError(t, err)
	_, _ = w.Write([]byte("not really a png"))
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestScanImageUpload(t *testing.T) {
	s := newTestServer(t)
	var seenPath string
	s.api.recognize = func(path string) (string, error) {
		seenPath = path
		return "민수[이스라펠]", nil
	}
	body, ct := multipartImage(t, "party.png")
	resp := performRequest(s.r, http.MethodPost, "/scans", body, s.token, ct)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var out scanResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))

	_, err := os.Stat(seenPath)
	assert.NoError(t, err)
	require.Len(t, s.accounts.uploads, 1)
	assert.Equal(t, out.ID, s.accounts.uploads[0].ScanID)
	assert.False(t, s.accounts.uploads[0].Failed)
	require.Len(t, out.Summary.Entries, 2)
}

func TestScanImageUploadFailures(t *testing.T) {
	s := newTestServer(t)
	s.api.recognize = func(string) (string, error) { return "", ocr.ErrNoText }

	body, ct := multipartImage(t, "party.png")
	resp := performRequest(s.r, http.MethodPost, "/scans", body, s.token, ct)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	require.Len(t, s.accounts.uploads, 1)
	assert.True(t, s.accounts.uploads[0].Failed)

	body, ct = multipartImage(t, "party.exe")
	resp = performRequest(s.r, http.MethodPost, "/scans", body, s.token, ct)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSearchCharacters(t *testing.T) {
	s := newTestServer(t)
	resp := performRequest(s.r, http.MethodGet, "/characters?name=민수&server=이스할겐", nil, s.token, "")
	require.Equal(t, http.StatusOK, resp.Code)
	var ents []roster.Entity
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &ents))
	require.Len(t, ents, 1)
	assert.Equal(t, "b", ents[0].ID)

	resp = performRequest(s.r, http.MethodGet, "/characters?name=민수", nil, s.token, "")
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &ents))
	assert.Len(t, ents, 2)

	resp = performRequest(s.r, http.MethodGet, "/characters?name=민수&server=어디", nil, s.token, "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	resp = performRequest(s.r, http.MethodGet, "/characters", nil, s.token, "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSetMainCharacter(t *testing.T) {
	s := newTestServer(t)
	resp := performRequest(s.r, http.MethodPut, "/me/main-character", jsonBody(t, map[string]string{"name": "나나", "server": "지헬"}), s.token, "application/json")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, &roster.Identity{Name: "나나", Location: "지켈"}, s.accounts.main["tester"])

	resp = performRequest(s.r, http.MethodPut, "/me/main-character", jsonBody(t, map[string]string{"name": "나나", "server": "이스"}), s.token, "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = performRequest(s.r, http.MethodGet, "/me", nil, s.token, "")
	require.Equal(t, http.StatusOK, resp.Code)
	var me struct {
		Username      string           `json:"username"`
		MainCharacter *roster.Identity `json:"main_character"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &me))
	assert.Equal(t, "tester", me.Username)
	assert.Equal(t, "지켈", me.MainCharacter.Location)
}

func TestScanRegistrySupersedes(t *testing.T) {
	reg := newScanRegistry()
	ctxA, idA, doneA := reg.begin(context.Background(), "u")
	ctxB, idB, doneB := reg.begin(context.Background(), "u")
	defer doneA()
	defer doneB()

	assert.ErrorIs(t, ctxA.Err(), context.Canceled)
	assert.NoError(t, ctxB.Err())
	assert.False(t, reg.finish("u", idA, nil))
	assert.True(t, reg.finish("u", idB, nil))
	_, ok := reg.get(idB, "u")
	assert.True(t, ok)
}
