package api

import (
	"encoding/json"
	"log"
	"math"
	"net/http"

	"crashengine/game"
)

/* =========================
   REQUEST/RESPONSE TYPES
========================= */

// CreateRoundRequest opens a new betting round
type CreateRoundRequest struct {
	ClientSeed string `json:"clientSeed,omitempty"`
}

// PlaceBetRequest registers a stake in a betting-phase round
type PlaceBetRequest struct {
	RoundID       int64   `json:"roundId"`
	ParticipantID string  `json:"participantId"`
	Stake         float64 `json:"stake"`                 // currency units, e.g. 10.50
	AutoCashOut   float64 `json:"autoCashOut,omitempty"` // e.g. 2.0, 0 = manual
}

// ClientSeedRequest replaces the round's client seed
type ClientSeedRequest struct {
	RoundID    int64  `json:"roundId"`
	ClientSeed string `json:"clientSeed"`
}

// StartRoundRequest locks betting and starts the round
type StartRoundRequest struct {
	RoundID int64 `json:"roundId"`
	Force   bool  `json:"force,omitempty"`
}

// ElapsedRequest reports the renderer clock's live multiplier
type ElapsedRequest struct {
	RoundID        int64   `json:"roundId"`
	LiveMultiplier float64 `json:"liveMultiplier"`
}

// CashOutRequest settles a bet at the requested multiplier
type CashOutRequest struct {
	RoundID       int64   `json:"roundId"`
	ParticipantID string  `json:"participantId"`
	Multiplier    float64 `json:"multiplier"`
}

// AbortRoundRequest voids a betting-phase round
type AbortRoundRequest struct {
	RoundID int64 `json:"roundId"`
}

/* =========================
   ROUND ENDPOINTS
========================= */

// HandleCreateRound handles POST /api/round/create
func HandleCreateRound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req CreateRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	info, err := rounds.Create(r.Context(), req.ClientSeed)
	if err != nil {
		log.Printf("❌ Failed to create round: %v", err)
		sendGuardError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"round":   info,
	})
}

// HandlePlaceBet handles POST /api/round/bet
func HandlePlaceBet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ParticipantID == "" {
		sendError(w, http.StatusBadRequest, "participantId is required")
		return
	}
	if req.Stake <= 0 {
		sendError(w, http.StatusBadRequest, "stake must be positive")
		return
	}

	stakeCents := int64(math.Round(req.Stake * 100))
	bet, err := rounds.PlaceBet(r.Context(), req.RoundID, req.ParticipantID,
		stakeCents, game.MultiplierFromFloat(req.AutoCashOut))
	if err != nil {
		sendGuardError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"bet":     bet,
	})
}

// HandleSetClientSeed handles POST /api/round/seed
func HandleSetClientSeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ClientSeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := rounds.SetClientSeed(r.Context(), req.RoundID, req.ClientSeed); err != nil {
		sendGuardError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// HandleStartRound handles POST /api/round/start
func HandleStartRound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req StartRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	info, err := rounds.Start(r.Context(), req.RoundID, req.Force)
	if err != nil {
		sendGuardError(w, err)
		return
	}

	// The crash point is frozen now but deliberately absent here.
	sendJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"round":   info,
	})
}

// HandleReportElapsed handles POST /api/round/elapsed
func HandleReportElapsed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ElapsedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	progress, err := rounds.ReportElapsed(r.Context(), req.RoundID,
		game.MultiplierFromFloat(req.LiveMultiplier))
	if err != nil {
		sendGuardError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"progress": progress,
	})
}

// HandleCashOut handles POST /api/round/cashout
func HandleCashOut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req CashOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ParticipantID == "" {
		sendError(w, http.StatusBadRequest, "participantId is required")
		return
	}

	result, err := rounds.CashOut(r.Context(), req.RoundID, req.ParticipantID,
		game.MultiplierFromFloat(req.Multiplier))
	if err != nil {
		sendGuardError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"cashout": result,
	})
}

// HandleAbortRound handles POST /api/round/abort
func HandleAbortRound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AbortRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	refunds, err := rounds.Abort(r.Context(), req.RoundID)
	if err != nil {
		sendGuardError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"refunds": refunds,
	})
}

// HandleGetRound handles GET /api/round/{roundId}
func HandleGetRound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	roundID, ok := roundIDFromPath(r.URL.Path, "/api/round/")
	if !ok {
		sendError(w, http.StatusBadRequest, "Invalid round id")
		return
	}

	snapshot, err := rounds.Engine.Snapshot(roundID)
	if err != nil {
		sendGuardError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"round":   snapshot,
	})
}

// HandleGetBalance handles GET /api/balance?participant=...
func HandleGetBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	participantID := r.URL.Query().Get("participant")
	if participantID == "" {
		sendError(w, http.StatusBadRequest, "participant query param is required")
		return
	}

	balance, err := walletSvc.Balance(r.Context(), participantID)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "Failed to read balance")
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"participant":  participantID,
		"balanceCents": balance,
	})
}
