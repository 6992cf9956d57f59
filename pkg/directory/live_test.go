package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveClientLookup(t *testing.T) {
	var got liveRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"list":[
			{"characterId":"abc","name":"<b>민수</b>","serverId":2001,"serverName":"이스라펠","level":55,"combatPower":3200},
			{"character_id":"def","name":"민수짱","server_id":2001,"pve_score":1500.5,"job":"검성"},
			{"characterId":"ghi","name":""}
		]}`))
	}))
	defer srv.Close()

	c := NewLiveClient(srv.URL, 0, nil)
	ents, err := c.Lookup(context.Background(), "민수", 2001)
	require.NoError(t, err)
	assert.Equal(t, liveRequest{Name: "민수", ServerID: 2001, Page: 1}, got)

	require.Len(t, ents, 2)
	assert.Equal(t, "abc", ents[0].ID)
	assert.Equal(t, "민수", ents[0].Name)
	assert.Equal(t, "이스라펠", ents[0].Server)
	assert.Equal(t, 55, ents[0].Level)
	assert.Equal(t, 3200.0, ents[0].PowerScore)
	assert.Equal(t, liveConfidence, ents[0].Confidence)

	assert.Equal(t, "def", ents[1].ID)
	assert.Equal(t, 2001, ents[1].ServerID)
	assert.Equal(t, 1500.5, ents[1].PowerScore)
	assert.Equal(t, "검성", ents[1].ClassName)
}

func TestLiveClientTopLevelArray(t *testing.T) {
	ents := parseLiveList([]byte(`[{"id":"1","name":"철수","server_id":1001,"combat_power":null,"pveScore":900}]`))
	require.Len(t, ents, 1)
	assert.Equal(t, "1", ents[0].ID)
	assert.Equal(t, 900.0, ents[0].PowerScore)
}

func TestLiveClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			_, _ = w.Write([]byte(`<html>`))
			return
		}
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewLiveClient(srv.URL, 0, nil).Lookup(context.Background(), "민수", 0)
	assert.ErrorContains(t, err, "status 502")

	_, err = NewLiveClient(srv.URL+"/bad", 0, nil).Lookup(context.Background(), "민수", 0)
	assert.ErrorContains(t, err, "invalid json")
}

func TestLiveClientCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLiveClient(srv.URL, 0, nil).Lookup(ctx, "민수", 0)
	assert.ErrorIs(t, err, context.Canceled)
}
