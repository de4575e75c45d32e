package config

import (
	"os"
	"strconv"
	"time"
)

/* =========================
   GAME POLICY
========================= */

const (
	// House policy, in basis points. Overridable via HOUSE_EDGE_BP and
	// INSTANT_CRASH_BP.
	HouseEdgeBP    = 100 // 1% house edge
	InstantCrashBP = 200 // 2% of rounds crash at 1.00x

	// Crash point cap in multiplier hundredths (1000.00x).
	MaxCrashCents = 100000

	// DefaultClientSeed is mixed in when no participant supplies one.
	DefaultClientSeed = "crash-default-client-seed"

	// Round timing
	MinBettingWindow = 5 * time.Second        // betting stays open at least this long
	TickInterval     = 100 * time.Millisecond // live multiplier report cadence
	InterRoundDelay  = 5 * time.Second        // countdown between rounds

	// Display curve growth rate (see game.LiveMultiplier).
	CurveRate = 0.5

	// In-memory history ring of crashed rounds.
	MaxRoundHistory = 50
)

/* =========================
   API CONFIGURATION
========================= */

const (
	ServerHost = "0.0.0.0"
	ServerPort = "8080"
)

/* =========================
   REDIS CONFIGURATION
========================= */

const (
	// Active bets for a round, cleared shortly after the crash.
	// Key: round:{roundId}:bets -> Hash{participantId: bet JSON}
	RedisRoundBetsKey = "round:%d:bets"
	RoundBetsTTL      = 1 * time.Hour

	// Cashed-out marker, kept briefly for the UI feed.
	// Key: round:{roundId}:cashedout:{participantId}
	RedisCashedOutKey = "round:%d:cashedout:%s"
	CashedOutTTL      = 10 * time.Minute
)

/* =========================
   POSTGRES POOL SETTINGS
========================= */

const (
	PostgresMaxConns    = 25
	PostgresMinConns    = 5
	PostgresMaxConnLife = 5 * time.Minute
)

/* =========================
   WEBSOCKET CONFIGURATION
========================= */

const (
	WSWriteDeadline   = 10 * time.Second
	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024
	WSSendBuffer      = 64
)

/* =========================
   ENV HELPERS
========================= */

// EnvInt reads an integer environment variable with a fallback.
func EnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// EnvDuration reads a duration environment variable (e.g. "3s") with a fallback.
func EnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// EnvString reads a string environment variable with a fallback.
func EnvString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
