package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"crashengine/game"
	"crashengine/service"
	"crashengine/wallet"
)

func setupAPI(t *testing.T) *service.Rounds {
	t.Helper()

	policy := game.DefaultPolicy()
	policy.MinBettingWindow = 0
	policy.Derive.InstantCrashBP = 0
	r := service.NewRounds(game.NewEngine(policy), wallet.NewMemory(100000))
	Init(r)
	return r
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestRoundEndpoints(t *testing.T) {
	setupAPI(t)

	rec := postJSON(t, HandleCreateRound, "/api/round/create", CreateRoundRequest{ClientSeed: "lucky"})
	if rec.Code != http.StatusOK {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	created := decodeBody(t, rec)["round"].(map[string]interface{})
	roundID := int64(created["roundId"].(float64))
	if created["serverSeedHash"].(string) == "" {
		t.Error("create response missing the commitment")
	}
	if _, leaked := created["serverSeed"]; leaked {
		t.Error("create response leaked the server seed")
	}

	rec = postJSON(t, HandlePlaceBet, "/api/round/bet", PlaceBetRequest{
		RoundID: roundID, ParticipantID: "p1", Stake: 10.00,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("bet: %d %s", rec.Code, rec.Body.String())
	}
	bet := decodeBody(t, rec)["bet"].(map[string]interface{})
	if bet["stakeCents"].(float64) != 1000 {
		t.Errorf("stake not converted to cents: %v", bet["stakeCents"])
	}

	rec = postJSON(t, HandleStartRound, "/api/round/start", StartRoundRequest{RoundID: roundID})
	if rec.Code != http.StatusOK {
		t.Fatalf("start: %d %s", rec.Code, rec.Body.String())
	}
	started := decodeBody(t, rec)["round"].(map[string]interface{})
	if _, leaked := started["crashMultiplier"]; leaked {
		t.Error("start response leaked the crash multiplier")
	}

	// Drive the round to its crash and confirm the seed comes out.
	rec = postJSON(t, HandleReportElapsed, "/api/round/elapsed", ElapsedRequest{
		RoundID: roundID, LiveMultiplier: 100000,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("elapsed: %d %s", rec.Code, rec.Body.String())
	}
	progress := decodeBody(t, rec)["progress"].(map[string]interface{})
	if progress["phase"].(string) != "crashed" {
		t.Fatalf("expected crash, got %v", progress["phase"])
	}
	if progress["serverSeed"].(string) == "" {
		t.Error("crash response missing the revealed seed")
	}

	// GET /api/round/{id} now shows the full reveal.
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/round/%d", roundID), nil)
	getRec := httptest.NewRecorder()
	HandleGetRound(getRec, req)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get round: %d %s", getRec.Code, getRec.Body.String())
	}
	snapshot := decodeBody(t, getRec)["round"].(map[string]interface{})
	if snapshot["serverSeed"].(string) == "" {
		t.Error("crashed snapshot missing the seed")
	}
}

func TestGuardErrorStatuses(t *testing.T) {
	setupAPI(t)

	// Unknown round.
	rec := postJSON(t, HandleStartRound, "/api/round/start", StartRoundRequest{RoundID: 99})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown round: expected 404, got %d", rec.Code)
	}
	if kind := decodeBody(t, rec)["kind"]; kind != "unknown_round" {
		t.Errorf("expected kind unknown_round, got %v", kind)
	}

	rec = postJSON(t, HandleCreateRound, "/api/round/create", CreateRoundRequest{})
	roundID := int64(decodeBody(t, rec)["round"].(map[string]interface{})["roundId"].(float64))

	// Stake beyond the ledger balance.
	rec = postJSON(t, HandlePlaceBet, "/api/round/bet", PlaceBetRequest{
		RoundID: roundID, ParticipantID: "p1", Stake: 5000.00,
	})
	if rec.Code != http.StatusPaymentRequired {
		t.Errorf("insufficient funds: expected 402, got %d", rec.Code)
	}

	postJSON(t, HandlePlaceBet, "/api/round/bet", PlaceBetRequest{
		RoundID: roundID, ParticipantID: "p1", Stake: 10.00,
	})

	// Duplicate bet.
	rec = postJSON(t, HandlePlaceBet, "/api/round/bet", PlaceBetRequest{
		RoundID: roundID, ParticipantID: "p1", Stake: 10.00,
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate bet: expected 409, got %d", rec.Code)
	}
	if kind := decodeBody(t, rec)["kind"]; kind != "duplicate_bet" {
		t.Errorf("expected kind duplicate_bet, got %v", kind)
	}

	postJSON(t, HandleStartRound, "/api/round/start", StartRoundRequest{RoundID: roundID})

	// Betting after start.
	rec = postJSON(t, HandlePlaceBet, "/api/round/bet", PlaceBetRequest{
		RoundID: roundID, ParticipantID: "p2", Stake: 10.00,
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("late bet: expected 409, got %d", rec.Code)
	}
	if kind := decodeBody(t, rec)["kind"]; kind != "phase_error" {
		t.Errorf("expected kind phase_error, got %v", kind)
	}

	// Cashing out ahead of the reported clock is always a plain bad
	// request, whatever side of the hidden crash point the value lands on.
	rec = postJSON(t, HandleCashOut, "/api/round/cashout", CashOutRequest{
		RoundID: roundID, ParticipantID: "p1", Multiplier: 50.0,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("premature cashout: expected 400, got %d", rec.Code)
	}
	if kind := decodeBody(t, rec)["kind"]; kind != "invalid_request" {
		t.Errorf("expected kind invalid_request, got %v", kind)
	}
}

func TestVerifyEndpoint(t *testing.T) {
	r := setupAPI(t)

	// Produce a real crashed round to verify.
	info, err := r.Engine.CreateRound("")
	if err != nil {
		t.Fatalf("CreateRound failed: %v", err)
	}
	if _, err := r.Engine.StartRound(info.RoundID, false); err != nil {
		t.Fatalf("StartRound failed: %v", err)
	}
	if _, err := r.Engine.ReportElapsed(info.RoundID, 10000000); err != nil {
		t.Fatalf("ReportElapsed failed: %v", err)
	}
	revealed, err := r.Engine.Revealed(info.RoundID)
	if err != nil {
		t.Fatalf("Revealed failed: %v", err)
	}

	rec := postJSON(t, HandleVerifyRound, "/api/verify", revealed)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify: %d %s", rec.Code, rec.Body.String())
	}
	if fair := decodeBody(t, rec)["fair"]; fair != true {
		t.Errorf("genuine round flagged unfair: %s", rec.Body.String())
	}

	tampered := revealed
	tampered.CrashMultiplier += 1.0
	rec = postJSON(t, HandleVerifyRound, "/api/verify", tampered)
	body := decodeBody(t, rec)
	if body["fair"] != false || body["reason"] != game.ReasonMultiplierMismatch {
		t.Errorf("tampered round accepted: %s", rec.Body.String())
	}
}

func TestRoundIDFromPath(t *testing.T) {
	cases := []struct {
		path string
		want int64
		ok   bool
	}{
		{"/api/round/42", 42, true},
		{"/api/round/42/", 42, true},
		{"/api/round/", 0, false},
		{"/api/round/abc", 0, false},
		{"/api/round/0", 0, false},
		{"/api/round/-1", 0, false},
	}
	for _, tc := range cases {
		got, ok := roundIDFromPath(tc.path, "/api/round/")
		if got != tc.want || ok != tc.ok {
			t.Errorf("roundIDFromPath(%q) = %d, %v; want %d, %v", tc.path, got, ok, tc.want, tc.ok)
		}
	}
}
