package api

import (
	"log"
	"net/http"

	"crashengine/db"
)

/* =========================
   RESPONSE TYPES
========================= */

// LeaderboardEntryResponse represents a single leaderboard entry
type LeaderboardEntryResponse struct {
	Rank          int     `json:"rank"`
	ParticipantID string  `json:"participantId"`
	Pnl           float64 `json:"pnl"`
}

// LeaderboardResponse represents the leaderboard API response
type LeaderboardResponse struct {
	Success      bool                       `json:"success"`
	Leaderboard  []LeaderboardEntryResponse `json:"leaderboard"`
	UserPosition *LeaderboardEntryResponse  `json:"userPosition,omitempty"`
}

/* =========================
   HTTP ENDPOINTS
========================= */

// HandleGetLeaderboard handles GET /api/leaderboard
// Query params: participant (optional) - get that participant's position
func HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx := r.Context()

	records, err := db.GetPnLLeaderboard(ctx, 20)
	if err != nil {
		log.Printf("❌ Failed to get leaderboard: %v", err)
		sendError(w, http.StatusInternalServerError, "Failed to retrieve leaderboard")
		return
	}

	response := LeaderboardResponse{
		Success:     true,
		Leaderboard: make([]LeaderboardEntryResponse, 0, len(records)),
	}

	for _, record := range records {
		response.Leaderboard = append(response.Leaderboard, LeaderboardEntryResponse{
			Rank:          record.Rank,
			ParticipantID: record.ParticipantID,
			Pnl:           float64(record.AmountCents) / 100,
		})
	}

	participant := r.URL.Query().Get("participant")
	if participant != "" {
		inTop := false
		for _, entry := range response.Leaderboard {
			if entry.ParticipantID == participant {
				inTop = true
				break
			}
		}

		if !inTop {
			record, err := db.GetPnLRank(ctx, participant)
			if err != nil {
				log.Printf("⚠️  Failed to get participant rank: %v", err)
			} else if record != nil {
				response.UserPosition = &LeaderboardEntryResponse{
					Rank:          record.Rank,
					ParticipantID: record.ParticipantID,
					Pnl:           float64(record.AmountCents) / 100,
				}
			}
		}
	}

	sendJSON(w, http.StatusOK, response)
}
