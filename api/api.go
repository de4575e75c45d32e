package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"crashengine/game"
	"crashengine/service"
	"crashengine/wallet"
)

var (
	rounds    *service.Rounds
	walletSvc wallet.Service
)

// Init wires the handlers to the round service. Call once before
// registering routes.
func Init(r *service.Rounds) {
	rounds = r
	walletSvc = r.Wallet
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Kind    string `json:"kind,omitempty"`
	Error   string `json:"error"`
}

func sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func sendError(w http.ResponseWriter, status int, message string) {
	sendJSON(w, status, ErrorResponse{Success: false, Error: message})
}

// sendGuardError maps an engine guard violation to an HTTP status and a
// stable machine-readable kind.
func sendGuardError(w http.ResponseWriter, err error) {
	kind, status := classify(err)
	sendJSON(w, status, ErrorResponse{Success: false, Kind: kind, Error: err.Error()})
}

// roundIDFromPath extracts the trailing numeric round id from a path like
// /api/round/42.
func roundIDFromPath(path, prefix string) (int64, bool) {
	raw := strings.TrimPrefix(path, prefix)
	raw = strings.Trim(raw, "/")
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func classify(err error) (string, int) {
	switch {
	case errors.Is(err, game.ErrUnknownRound):
		return "unknown_round", http.StatusNotFound
	case errors.Is(err, game.ErrNoBet):
		return "unknown_bet", http.StatusNotFound
	case errors.Is(err, game.ErrPhase):
		return "phase_error", http.StatusConflict
	case errors.Is(err, game.ErrDuplicateBet):
		return "duplicate_bet", http.StatusConflict
	case errors.Is(err, game.ErrAlreadyCashedOut):
		return "already_cashed_out", http.StatusConflict
	case errors.Is(err, game.ErrTooLate):
		return "too_late", http.StatusConflict
	case errors.Is(err, game.ErrBettingWindowOpen):
		return "betting_window_open", http.StatusConflict
	case errors.Is(err, game.ErrInvalidStake),
		errors.Is(err, game.ErrMultiplierAhead),
		errors.Is(err, game.ErrMultiplierTooSmall),
		errors.Is(err, game.ErrEmptyClientSeed):
		return "invalid_request", http.StatusBadRequest
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return "insufficient_funds", http.StatusPaymentRequired
	default:
		return "internal", http.StatusInternalServerError
	}
}
