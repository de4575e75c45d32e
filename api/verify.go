package api

import (
	"encoding/json"
	"log"
	"net/http"

	"crashengine/db"
	"crashengine/game"
)

/* =========================
   FAIRNESS VERIFICATION
========================= */

// HandleVerifyRound handles POST /api/verify. It replays the fairness
// proof on a fully revealed round and reports the first check that fails.
// The body is the public reveal tuple, so anyone can call this with data
// they pulled from the crash broadcast or the archive.
func HandleVerifyRound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed. Use POST.")
		return
	}

	var revealed game.RevealedRound
	if err := json.NewDecoder(r.Body).Decode(&revealed); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result := game.VerifyRound(revealed, rounds.Engine.DeriveParams())

	if result.Fair {
		log.Printf("✅ Round %d verified fair - crash %.2fx", revealed.RoundID, revealed.CrashMultiplier)
	} else {
		log.Printf("🚨 Round %d failed verification: %s", revealed.RoundID, result.Reason)
	}

	sendJSON(w, http.StatusOK, result)
}

/* =========================
   HEALTH CHECK ENDPOINT
========================= */

// HandleHealthCheck handles health check requests
// GET /api/health
func HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx := r.Context()

	redisHealth := "ok"
	if err := db.HealthCheck(ctx); err != nil {
		redisHealth = "error: " + err.Error()
	}

	postgresHealth := "ok"
	if err := db.HealthCheckPostgres(ctx); err != nil {
		postgresHealth = "error: " + err.Error()
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"redis":    redisHealth,
		"postgres": postgresHealth,
		"message":  "Health check completed",
	})
}
