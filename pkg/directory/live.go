package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"partyscan/pkg/roster"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const liveConfidence = 1.0

// DefaultLiveTimeout bounds one live search request.
const DefaultLiveTimeout = 5 * time.Second

// tagRE strips highlight markup the live search wraps around matched text.
var tagRE = regexp.MustCompile(`</?[^>]+(>|$)`)

// LiveClient queries the authoritative character search endpoint.
type LiveClient struct {
	url  string
	http *http.Client
	log  *zap.SugaredLogger
}

// NewLiveClient builds a client for url. timeout <= 0 uses DefaultLiveTimeout.
func NewLiveClient(url string, timeout time.Duration, log *zap.Logger) *LiveClient {
	if timeout <= 0 {
		timeout = DefaultLiveTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &LiveClient{url: url, http: &http.Client{Timeout: timeout}, log: log.Sugar()}
}

type liveRequest struct {
	Name     string `json:"name"`
	ServerID int    `json:"serverId,omitempty"`
	Page     int    `json:"page"`
}

// Lookup posts a search and decodes the result list. serverID 0 searches every server.
func (c *LiveClient) Lookup(ctx context.Context, name string, serverID int) ([]roster.Entity, error) {
	body, err := json.Marshal(liveRequest{Name: name, ServerID: serverID, Page: 1})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("live search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("live search %q: %w", name, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("live search read: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("live search %q: status %d: %s", name, resp.StatusCode, snippet(raw))
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("live search %q: invalid json: %s", name, snippet(raw))
	}
	ents := parseLiveList(raw)
	c.log.Debugf("live search name=%s server=%d results=%d", name, serverID, len(ents))
	return ents, nil
}

// parseLiveList resolves the loose payload fields once. The list may sit under "list"
// or be the top-level array.
func parseLiveList(raw []byte) []roster.Entity {
	doc := gjson.ParseBytes(raw)
	list := doc.Get("list")
	if !list.Exists() && doc.IsArray() {
		list = doc
	}
	var out []roster.Entity
	list.ForEach(func(_, item gjson.Result) bool {
		name := strings.TrimSpace(tagRE.ReplaceAllString(item.Get("name").String(), ""))
		if name == "" {
			return true
		}
		e := roster.Entity{
			ID:         first(item, "characterId", "character_id", "id").String(),
			Name:       name,
			Server:     first(item, "serverName", "server_name", "server").String(),
			ServerID:   int(first(item, "serverId", "server_id").Int()),
			Level:      int(first(item, "level", "characterLevel").Int()),
			ClassName:  first(item, "className", "class_name", "job").String(),
			PowerScore: first(item, "combatPower", "combat_power", "pveScore", "pve_score").Float(),
			Confidence: liveConfidence,
		}
		out = append(out, e)
		return true
	})
	return out
}

func first(item gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := item.Get(p); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

func snippet(b []byte) string {
	if len(b) > 200 {
		b = b[:200]
	}
	return string(b)
}
