package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"crashengine/config"

	"github.com/redis/go-redis/v9"
)

var (
	// RedisClient is the global Redis client instance
	RedisClient *redis.Client
)

// ActiveBetData is the hot-path mirror of a live bet, hashed per round so
// a restarted API node can list who is still in the current round without
// touching PostgreSQL.
type ActiveBetData struct {
	BetID            string    `json:"betId"`
	ParticipantID    string    `json:"participantId"`
	StakeCents       int64     `json:"stakeCents"`
	AutoCashOutCents int64     `json:"autoCashOutCents,omitempty"`
	PlacedAt         time.Time `json:"placedAt"`
}

// CashedOutData marks a completed cashout for the short-lived UI feed.
type CashedOutData struct {
	BetID         string    `json:"betId"`
	ParticipantID string    `json:"participantId"`
	RoundID       int64     `json:"roundId"`
	CashOutCents  int64     `json:"cashOutCents"`
	PayoutCents   int64     `json:"payoutCents"`
	CashedOutAt   time.Time `json:"cashedOutAt"`
}

// InitRedis initializes the Redis client connection
func InitRedis() error {
	log.Println("🔌 Connecting to Redis...")

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "localhost:6379"
	}

	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			redisDB = db
		}
	}

	RedisClient = redis.NewClient(&redis.Options{
		Addr:         redisURL,
		Password:     redisPassword,
		DB:           redisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := RedisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("✅ Redis connected successfully - URL: %s", redisURL)
	return nil
}

// CloseRedis closes the Redis connection
func CloseRedis() error {
	if RedisClient != nil {
		log.Println("🔌 Closing Redis connection...")
		return RedisClient.Close()
	}
	return nil
}

/* =========================
   ACTIVE BETS (Hash per round)
   Redis Key: round:{roundId}:bets -> Hash{participantId: bet JSON}
========================= */

// StoreActiveBet mirrors a live bet into the round's hash
func StoreActiveBet(ctx context.Context, roundID int64, bet *ActiveBetData) error {
	if RedisClient == nil {
		return nil
	}
	hashKey := fmt.Sprintf(config.RedisRoundBetsKey, roundID)

	data, err := json.Marshal(bet)
	if err != nil {
		return fmt.Errorf("failed to marshal active bet: %w", err)
	}

	if err := RedisClient.HSet(ctx, hashKey, bet.ParticipantID, data).Err(); err != nil {
		return fmt.Errorf("failed to store active bet: %w", err)
	}

	RedisClient.Expire(ctx, hashKey, config.RoundBetsTTL)
	return nil
}

// GetActiveBet retrieves a live bet mirror, nil if absent
func GetActiveBet(ctx context.Context, roundID int64, participantID string) (*ActiveBetData, error) {
	if RedisClient == nil {
		return nil, nil
	}
	hashKey := fmt.Sprintf(config.RedisRoundBetsKey, roundID)

	data, err := RedisClient.HGet(ctx, hashKey, participantID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active bet: %w", err)
	}

	var bet ActiveBetData
	if err := json.Unmarshal([]byte(data), &bet); err != nil {
		return nil, fmt.Errorf("failed to unmarshal active bet: %w", err)
	}

	return &bet, nil
}

// GetAllActiveBets retrieves every live bet mirror for a round
func GetAllActiveBets(ctx context.Context, roundID int64) (map[string]*ActiveBetData, error) {
	if RedisClient == nil {
		return map[string]*ActiveBetData{}, nil
	}
	hashKey := fmt.Sprintf(config.RedisRoundBetsKey, roundID)

	data, err := RedisClient.HGetAll(ctx, hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get active bets: %w", err)
	}

	bets := make(map[string]*ActiveBetData)
	for participantID, betJSON := range data {
		var bet ActiveBetData
		if err := json.Unmarshal([]byte(betJSON), &bet); err != nil {
			log.Printf("⚠️  Failed to unmarshal bet for %s: %v", participantID, err)
			continue
		}
		bets[participantID] = &bet
	}

	return bets, nil
}

// DeleteActiveBet removes a live bet mirror (after cashout)
func DeleteActiveBet(ctx context.Context, roundID int64, participantID string) error {
	if RedisClient == nil {
		return nil
	}
	hashKey := fmt.Sprintf(config.RedisRoundBetsKey, roundID)

	if err := RedisClient.HDel(ctx, hashKey, participantID).Err(); err != nil {
		return fmt.Errorf("failed to delete active bet: %w", err)
	}
	return nil
}

// CleanupRound removes the active-bet hash once a round has settled
func CleanupRound(ctx context.Context, roundID int64) error {
	if RedisClient == nil {
		return nil
	}
	hashKey := fmt.Sprintf(config.RedisRoundBetsKey, roundID)

	count, _ := RedisClient.HLen(ctx, hashKey).Result()

	if err := RedisClient.Del(ctx, hashKey).Err(); err != nil {
		return fmt.Errorf("failed to cleanup round: %w", err)
	}

	log.Printf("🧹 Cleaned up round %d (%d live bets)", roundID, count)
	return nil
}

/* =========================
   CASHED-OUT MARKERS
========================= */

// StoreCashedOut records a cashout marker with a short TTL
func StoreCashedOut(ctx context.Context, data *CashedOutData) error {
	if RedisClient == nil {
		return nil
	}
	key := fmt.Sprintf(config.RedisCashedOutKey, data.RoundID, data.ParticipantID)

	if data.CashedOutAt.IsZero() {
		data.CashedOutAt = time.Now()
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal cashout marker: %w", err)
	}

	if err := RedisClient.Set(ctx, key, payload, config.CashedOutTTL).Err(); err != nil {
		return fmt.Errorf("failed to store cashout marker: %w", err)
	}
	return nil
}

// GetCashedOut retrieves a cashout marker, nil if absent or expired
func GetCashedOut(ctx context.Context, roundID int64, participantID string) (*CashedOutData, error) {
	if RedisClient == nil {
		return nil, nil
	}
	key := fmt.Sprintf(config.RedisCashedOutKey, roundID, participantID)

	data, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cashout marker: %w", err)
	}

	var out CashedOutData
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cashout marker: %w", err)
	}

	return &out, nil
}

/* =========================
   HEALTH CHECK
========================= */

// HealthCheck performs a Redis health check
func HealthCheck(ctx context.Context) error {
	if RedisClient == nil {
		return fmt.Errorf("redis client not initialized")
	}
	return RedisClient.Ping(ctx).Err()
}
