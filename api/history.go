package api

import (
	"log"
	"net/http"
	"strconv"

	"crashengine/db"
)

/* =========================
   HISTORY ENDPOINTS
========================= */

// HandleGetHistory handles GET /api/history?limit=N
// Serves the in-memory ring of recently crashed rounds; falls back to
// PostgreSQL when the ring is empty (fresh process).
func HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	history := rounds.Engine.History()
	if len(history) > 0 {
		if len(history) > limit {
			history = history[len(history)-limit:]
		}
		sendJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"rounds":  history,
		})
		return
	}

	records, err := db.GetRecentRounds(r.Context(), limit)
	if err != nil {
		log.Printf("❌ Failed to load round history: %v", err)
		sendError(w, http.StatusInternalServerError, "Failed to retrieve history")
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"rounds":  records,
	})
}

// HandleGetArchivedRound handles GET /api/history/{roundId}
// Reads the durable archive, including the settled bets, for audit.
func HandleGetArchivedRound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	roundID, ok := roundIDFromPath(r.URL.Path, "/api/history/")
	if !ok {
		sendError(w, http.StatusBadRequest, "Invalid round id")
		return
	}

	record, err := db.GetRoundResult(r.Context(), roundID)
	if err != nil {
		log.Printf("❌ Failed to load round %d: %v", roundID, err)
		sendError(w, http.StatusInternalServerError, "Failed to retrieve round")
		return
	}
	if record == nil {
		sendError(w, http.StatusNotFound, "Round not found")
		return
	}

	bets, err := db.GetRoundBets(r.Context(), roundID)
	if err != nil {
		log.Printf("⚠️  Failed to load bets for round %d: %v", roundID, err)
		bets = nil
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"round":   record,
		"bets":    bets,
	})
}

// HandleGetActiveBets handles GET /api/bets/{roundId}
// Serves the Redis mirror of live bets for the current round.
func HandleGetActiveBets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	roundID, ok := roundIDFromPath(r.URL.Path, "/api/bets/")
	if !ok {
		sendError(w, http.StatusBadRequest, "Invalid round id")
		return
	}

	bets, err := db.GetAllActiveBets(r.Context(), roundID)
	if err != nil {
		log.Printf("❌ Failed to load active bets: %v", err)
		sendError(w, http.StatusInternalServerError, "Failed to retrieve active bets")
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"roundId": roundID,
		"bets":    bets,
	})
}
