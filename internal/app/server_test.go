package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestServerStatusEndpoint(t *testing.T) {
	mb := newMockBroker()
	bot, cancel := newTestBot(nil, testClients(mb))
	defer cancel()
	srv := NewServer(zap.NewNop(), bot, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	srv.srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var st Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.IsRunning {
		t.Error("expected bot stopped before any control action")
	}
}

func TestServerControlStartStop(t *testing.T) {
	mb := newMockBroker()
	bot, cancel := newTestBot(nil, testClients(mb))
	defer cancel()
	srv := NewServer(zap.NewNop(), bot, 0)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/control", strings.NewReader(body))
		rec := httptest.NewRecorder()
		srv.srv.Handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := post(`{"action":"start"}`); rec.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if !snapshot(bot, bot.statusLocked).IsRunning {
		t.Error("expected bot running after start action")
	}

	if rec := post(`{"action":"stop"}`); rec.Code != http.StatusOK {
		t.Fatalf("stop: expected 200, got %d", rec.Code)
	}
	if snapshot(bot, bot.statusLocked).IsRunning {
		t.Error("expected bot stopped after stop action")
	}

	if rec := post(`{"action":"dance"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown action: expected 400, got %d", rec.Code)
	}
}

func TestServerJoinTournament(t *testing.T) {
	mb := newMockBroker()
	mb.tournaments = freeTournamentFixtures()
	bot, cancel := newTestBot(nil, testClients(mb))
	defer cancel()
	srv := NewServer(zap.NewNop(), bot, 0)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/control", strings.NewReader(body))
		rec := httptest.NewRecorder()
		srv.srv.Handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := post(`{"action":"join_tournament","id":"t1"}`); rec.Code != http.StatusOK {
		t.Errorf("join t1: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if rec := post(`{"action":"join_tournament","id":"t3"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("join ended t3: expected 400, got %d", rec.Code)
	}
	if ids := mb.joinedIDs(); len(ids) != 1 || ids[0] != "t1" {
		t.Errorf("expected exactly t1 joined, got %v", ids)
	}
}

func TestServerFreeTournaments(t *testing.T) {
	mb := newMockBroker()
	mb.tournaments = freeTournamentFixtures()
	bot, cancel := newTestBot(nil, testClients(mb))
	defer cancel()
	srv := NewServer(zap.NewNop(), bot, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/tournaments/free", nil)
	rec := httptest.NewRecorder()
	srv.srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0]["id"] != "t1" {
		t.Errorf("expected only t1, got %v", list)
	}
}

func TestServerFreeTournamentsDegradesOnFetchFailure(t *testing.T) {
	mb := newMockBroker()
	mb.tournamentsErr = errors.New("broker unreachable")
	bot, cancel := newTestBot(nil, testClients(mb))
	defer cancel()
	srv := NewServer(zap.NewNop(), bot, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/tournaments/free", nil)
	rec := httptest.NewRecorder()
	srv.srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 when the broker is unreachable, got %d (%s)", rec.Code, rec.Body.String())
	}
	var list []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected an empty list, got %v", list)
	}
}

func TestServerBusyDispatcherTimesOut(t *testing.T) {
	cfg := testConfig()
	cfg.Bot.BridgeBudget = 50 * time.Millisecond
	mb := newMockBroker()
	bot, cancel := newTestBot(cfg, testClients(mb))
	defer cancel()
	srv := NewServer(zap.NewNop(), bot, 0)

	// Occupy the dispatcher so the status request cannot be served in time.
	go func() {
		_ = bot.do(context.Background(), func() { time.Sleep(300 * time.Millisecond) })
	}()
	time.Sleep(20 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	srv.srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("expected 504 from a saturated dispatcher, got %d", rec.Code)
	}
}
