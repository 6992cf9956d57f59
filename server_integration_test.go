package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"partyscan/models"
	"partyscan/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func setupTestServer(t *testing.T) (*gin.Engine, *scanAPI) {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	jwtSecret = []byte("integration-secret")
	cfg := config.Config{DBDSN: os.Getenv("DB_DSN"), DBAutoMigrate: true, UploadBase: t.TempDir(), MaxLookups: 4}
	initDB(cfg)
	db.Where("character_id = ?", "it-minsu").Delete(&models.Character{})
	db.Create(&models.Character{CharacterID: "it-minsu", Name: "민수", ServerID: 2001, ServerName: "이스라펠", Level: 45, PowerScore: 3300})

	api := newScanAPI(newDirectory(cfg, nil), dbAccounts{}, cfg, nil)
	r := gin.Default()
	setupRoutes(r, api)
	return r, api
}

func TestFullFlow(t *testing.T) {
	r, api := setupTestServer(t)

	// 1. Register user
	regBody, _ := json.Marshal(map[string]string{"username": "user1", "password": "pass1234"})
	resp := performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(regBody), "", "application/json")
	if resp.Code != 200 && resp.Code != 409 {
		t.Fatalf("register failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 2. Login
	loginBody, _ := json.Marshal(map[string]string{"username": "user1", "password": "pass1234"})
	resp = performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(loginBody), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("login failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var loginResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &loginResp)
	token, _ := loginResp["token"].(string)
	if token == "" {
		t.Fatalf("empty token in login response: %+v", loginResp)
	}

	// 3. Set main character
	mainBody, _ := json.Marshal(map[string]string{"name": "나나", "server": "시엘"})
	resp = performRequest(r, http.MethodPut, "/me/main-character", bytes.NewBuffer(mainBody), token, "application/json")
	if resp.Code != 200 {
		t.Fatalf("set main character failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 4. Upload a screenshot; OCR is stubbed
	api.recognize = func(string) (string, error) { return "민수[이스라펠]", nil }
	body, ct := multipartImage(t, "party.png")
	resp = performRequest(r, http.MethodPost, "/scans", body, token, ct)
	if resp.Code != 200 {
		t.Fatalf("scan failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var out scanResponse
	_ = json.Unmarshal(resp.Body.Bytes(), &out)
	if len(out.Summary.Entries) != 2 {
		t.Fatalf("expected 2 entries got %+v", out.Summary.Entries)
	}
	var resolved bool
	for _, e := range out.Summary.Entries {
		if e.EntityID == "it-minsu" && e.Resolved {
			resolved = true
		}
	}
	if !resolved {
		t.Fatalf("cached character not resolved: %+v", out.Summary.Entries)
	}

	var cnt int64
	db.Model(&models.Upload{}).Where("scan_id = ?", out.ID).Count(&cnt)
	if cnt != 1 {
		t.Fatalf("expected upload record for scan %s got %d", out.ID, cnt)
	}

	// 5. Unauthorized access to protected endpoint should be 401
	unauth := performRequest(r, http.MethodGet, "/scans/"+out.ID, nil, "", "")
	if unauth.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthorized scan read got %d", unauth.Code)
	}
}

func TestMigrateCommand(t *testing.T) {
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	initDB(config.Config{DBDSN: os.Getenv("DB_DSN"), DBAutoMigrate: true, UploadBase: t.TempDir()})
}

func TestRefreshRotation(t *testing.T) {
	r, _ := setupTestServer(t)

	regBody, _ := json.Marshal(map[string]string{"username": "user-refresh", "password": "pass1234"})
	performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(regBody), "", "application/json")
	resp := performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(regBody), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("login failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var loginResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &loginResp)
	oldRT, _ := loginResp["refresh_token"].(string)

	body, _ := json.Marshal(map[string]string{"refresh_token": oldRT})
	resp = performRequest(r, http.MethodPost, "/refresh", bytes.NewBuffer(body), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("refresh failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var refreshResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &refreshResp)
	token, _ := refreshResp["token"].(string)

	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) { return jwtSecret, nil }); err != nil {
		t.Fatalf("parse refreshed token: %v", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		t.Fatalf("refreshed token has no exp: %v", err)
	}
	if ttl := time.Until(exp.Time); ttl < accessTokenTTL-time.Minute {
		t.Fatalf("refreshed token ttl %s shorter than login ttl %s", ttl, accessTokenTTL)
	}

	// the rotated token is revoked
	resp = performRequest(r, http.MethodPost, "/refresh", bytes.NewBuffer(body), "", "application/json")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for reused refresh token got %d", resp.Code)
	}
}
