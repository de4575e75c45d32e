package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"crashengine/config"
	"crashengine/game"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// PostgresPool is the global PostgreSQL connection pool
	PostgresPool *pgxpool.Pool
)

// RoundHistoryRecord is the durable audit row for a finished round.
// Multipliers are stored as integer hundredths, matching the engine.
type RoundHistoryRecord struct {
	RoundID        int64     `json:"roundId"`
	ServerSeed     string    `json:"serverSeed"`
	ServerSeedHash string    `json:"serverSeedHash"`
	ClientSeed     string    `json:"clientSeed"`
	CrashCents     int64     `json:"crashCents"`
	StartedAt      time.Time `json:"startedAt"`
	CrashedAt      time.Time `json:"crashedAt"`
	CreatedAt      time.Time `json:"createdAt"`
}

// RoundBetRecord is the durable audit row for one bet.
type RoundBetRecord struct {
	ID               int        `json:"id"`
	RoundID          int64      `json:"roundId"`
	BetID            string     `json:"betId"`
	ParticipantID    string     `json:"participantId"`
	StakeCents       int64      `json:"stakeCents"`
	AutoCashOutCents int64      `json:"autoCashOutCents"`
	CashOutCents     *int64     `json:"cashOutCents,omitempty"`
	PayoutCents      int64      `json:"payoutCents"`
	Status           string     `json:"status"`
	PlacedAt         time.Time  `json:"placedAt"`
	SettledAt        *time.Time `json:"settledAt,omitempty"`
}

// InitPostgres initializes the PostgreSQL connection pool
func InitPostgres() error {
	log.Println("🔌 Connecting to PostgreSQL...")

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = config.PostgresMaxConns
	poolConfig.MinConns = config.PostgresMinConns
	poolConfig.MaxConnLifetime = config.PostgresMaxConnLife

	PostgresPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := PostgresPool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ PostgreSQL connected successfully")

	if err := InitSchema(context.Background()); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// ClosePostgres closes the PostgreSQL connection pool
func ClosePostgres() {
	if PostgresPool != nil {
		log.Println("🔌 Closing PostgreSQL connection...")
		PostgresPool.Close()
	}
}

// InitSchema creates the database tables if they don't exist
func InitSchema(ctx context.Context) error {
	log.Println("📋 Initializing database schema...")

	roundHistorySchema := `
	CREATE TABLE IF NOT EXISTS round_history (
		round_id BIGINT PRIMARY KEY,
		server_seed TEXT NOT NULL,
		server_seed_hash TEXT NOT NULL UNIQUE,
		client_seed TEXT NOT NULL,
		crash_cents BIGINT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		crashed_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	-- Index on crashed_at for the recent-rounds feed
	CREATE INDEX IF NOT EXISTS idx_round_history_crashed_at ON round_history(crashed_at DESC);
	`

	if _, err := PostgresPool.Exec(ctx, roundHistorySchema); err != nil {
		return fmt.Errorf("failed to create round_history table: %w", err)
	}

	roundBetsSchema := `
	CREATE TABLE IF NOT EXISTS round_bets (
		id SERIAL PRIMARY KEY,
		round_id BIGINT NOT NULL,
		bet_id TEXT NOT NULL,
		participant_id TEXT NOT NULL,
		stake_cents BIGINT NOT NULL,
		auto_cashout_cents BIGINT NOT NULL DEFAULT 0,
		cashout_cents BIGINT,
		payout_cents BIGINT NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		placed_at TIMESTAMP NOT NULL,
		settled_at TIMESTAMP,
		UNIQUE(round_id, participant_id)
	);

	CREATE INDEX IF NOT EXISTS idx_round_bets_round_id ON round_bets(round_id);
	CREATE INDEX IF NOT EXISTS idx_round_bets_participant ON round_bets(participant_id);
	CREATE INDEX IF NOT EXISTS idx_round_bets_status ON round_bets(status);
	`

	if _, err := PostgresPool.Exec(ctx, roundBetsSchema); err != nil {
		return fmt.Errorf("failed to create round_bets table: %w", err)
	}

	pnlSchema := `
	CREATE TABLE IF NOT EXISTS participant_pnl (
		participant_id TEXT PRIMARY KEY,
		amount_cents BIGINT NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_participant_pnl_amount ON participant_pnl(amount_cents DESC);
	`

	if _, err := PostgresPool.Exec(ctx, pnlSchema); err != nil {
		return fmt.Errorf("failed to create participant_pnl table: %w", err)
	}

	log.Println("✅ Database schema initialized")
	return nil
}

/* =========================
   ROUND HISTORY
========================= */

// StoreRoundResult archives a crashed round and its settled bets in one
// transaction. Replays are harmless: the round row and bet rows are keyed
// by round id and conflict-skip.
func StoreRoundResult(ctx context.Context, res game.Result) error {
	if PostgresPool == nil {
		log.Println("⚠️  PostgreSQL not initialized, skipping round archive")
		return nil
	}

	tx, err := PostgresPool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	roundQuery := `
		INSERT INTO round_history
		(round_id, server_seed, server_seed_hash, client_seed, crash_cents, started_at, crashed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (round_id) DO NOTHING
	`

	_, err = tx.Exec(
		ctx,
		roundQuery,
		res.RoundID,
		res.ServerSeed,
		res.ServerSeedHash,
		res.ClientSeed,
		game.MultiplierFromFloat(res.CrashMultiplier),
		res.StartedAt,
		res.CrashedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store round history: %w", err)
	}

	betQuery := `
		INSERT INTO round_bets
		(round_id, bet_id, participant_id, stake_cents, auto_cashout_cents, cashout_cents, payout_cents, status, placed_at, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (round_id, participant_id) DO UPDATE
		SET cashout_cents = EXCLUDED.cashout_cents,
		    payout_cents = EXCLUDED.payout_cents,
		    status = EXCLUDED.status,
		    settled_at = EXCLUDED.settled_at
	`

	for _, bet := range res.Bets {
		var cashout *int64
		if bet.CashOut != nil {
			c := int64(game.MultiplierFromFloat(*bet.CashOut))
			cashout = &c
		}
		_, err = tx.Exec(
			ctx,
			betQuery,
			res.RoundID,
			bet.BetID,
			bet.ParticipantID,
			bet.StakeCents,
			int64(game.MultiplierFromFloat(bet.AutoCashOut)),
			cashout,
			bet.PayoutCents,
			bet.Status,
			bet.PlacedAt,
			res.CrashedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to store bet for %s: %w", bet.ParticipantID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit round archive: %w", err)
	}

	log.Printf("✅ Archived round %d - crash %.2fx, %d bets",
		res.RoundID, res.CrashMultiplier, len(res.Bets))
	return nil
}

// GetRoundResult retrieves an archived round by id
func GetRoundResult(ctx context.Context, roundID int64) (*RoundHistoryRecord, error) {
	if PostgresPool == nil {
		return nil, nil
	}

	query := `
		SELECT round_id, server_seed, server_seed_hash, client_seed, crash_cents, started_at, crashed_at, created_at
		FROM round_history
		WHERE round_id = $1
	`

	var record RoundHistoryRecord
	err := PostgresPool.QueryRow(ctx, query, roundID).Scan(
		&record.RoundID,
		&record.ServerSeed,
		&record.ServerSeedHash,
		&record.ClientSeed,
		&record.CrashCents,
		&record.StartedAt,
		&record.CrashedAt,
		&record.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil // Round not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round history: %w", err)
	}

	return &record, nil
}

// GetRecentRounds retrieves the N most recently crashed rounds
func GetRecentRounds(ctx context.Context, limit int) ([]*RoundHistoryRecord, error) {
	if PostgresPool == nil {
		return []*RoundHistoryRecord{}, nil
	}

	query := `
		SELECT round_id, server_seed, server_seed_hash, client_seed, crash_cents, started_at, crashed_at, created_at
		FROM round_history
		ORDER BY crashed_at DESC
		LIMIT $1
	`

	rows, err := PostgresPool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query round history: %w", err)
	}
	defer rows.Close()

	var records []*RoundHistoryRecord
	for rows.Next() {
		var record RoundHistoryRecord
		if err := rows.Scan(
			&record.RoundID,
			&record.ServerSeed,
			&record.ServerSeedHash,
			&record.ClientSeed,
			&record.CrashCents,
			&record.StartedAt,
			&record.CrashedAt,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// GetRoundBets retrieves the archived bets of a round
func GetRoundBets(ctx context.Context, roundID int64) ([]*RoundBetRecord, error) {
	if PostgresPool == nil {
		return []*RoundBetRecord{}, nil
	}

	query := `
		SELECT id, round_id, bet_id, participant_id, stake_cents, auto_cashout_cents,
		       cashout_cents, payout_cents, status, placed_at, settled_at
		FROM round_bets
		WHERE round_id = $1
		ORDER BY placed_at ASC
	`

	rows, err := PostgresPool.Query(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to query round bets: %w", err)
	}
	defer rows.Close()

	var records []*RoundBetRecord
	for rows.Next() {
		var record RoundBetRecord
		if err := rows.Scan(
			&record.ID,
			&record.RoundID,
			&record.BetID,
			&record.ParticipantID,
			&record.StakeCents,
			&record.AutoCashOutCents,
			&record.CashOutCents,
			&record.PayoutCents,
			&record.Status,
			&record.PlacedAt,
			&record.SettledAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

/* =========================
   HEALTH CHECK
========================= */

// HealthCheckPostgres performs a PostgreSQL health check
func HealthCheckPostgres(ctx context.Context) error {
	if PostgresPool == nil {
		return fmt.Errorf("PostgreSQL connection pool not initialized")
	}
	return PostgresPool.Ping(ctx)
}

/* =========================
   PARTICIPANT PNL
========================= */

// PnLRecord represents a participant's cumulative PnL in cents
type PnLRecord struct {
	ParticipantID string `json:"participantId"`
	AmountCents   int64  `json:"amountCents"`
	Rank          int    `json:"rank,omitempty"`
}

// SubtractPnL subtracts a stake from a participant's PnL (upsert)
func SubtractPnL(ctx context.Context, participantID string, stakeCents int64) error {
	if PostgresPool == nil {
		log.Println("⚠️  PostgreSQL not initialized, skipping PnL update")
		return nil
	}

	query := `
		INSERT INTO participant_pnl (participant_id, amount_cents)
		VALUES ($1, 0 - $2)
		ON CONFLICT (participant_id) DO UPDATE
		SET amount_cents = participant_pnl.amount_cents - $2
	`

	_, err := PostgresPool.Exec(ctx, query, participantID, stakeCents)
	if err != nil {
		return fmt.Errorf("failed to subtract PnL: %w", err)
	}

	return nil
}

// AddPnL adds a payout to a participant's PnL (upsert)
func AddPnL(ctx context.Context, participantID string, payoutCents int64) error {
	if PostgresPool == nil {
		log.Println("⚠️  PostgreSQL not initialized, skipping PnL update")
		return nil
	}

	query := `
		INSERT INTO participant_pnl (participant_id, amount_cents)
		VALUES ($1, $2)
		ON CONFLICT (participant_id) DO UPDATE
		SET amount_cents = participant_pnl.amount_cents + $2
	`

	_, err := PostgresPool.Exec(ctx, query, participantID, payoutCents)
	if err != nil {
		return fmt.Errorf("failed to add PnL: %w", err)
	}

	return nil
}

// GetPnLLeaderboard returns top N participants sorted by PnL descending
func GetPnLLeaderboard(ctx context.Context, limit int) ([]*PnLRecord, error) {
	if PostgresPool == nil {
		return []*PnLRecord{}, nil
	}

	query := `
		SELECT participant_id, amount_cents,
		       ROW_NUMBER() OVER (ORDER BY amount_cents DESC) as rank
		FROM participant_pnl
		ORDER BY amount_cents DESC
		LIMIT $1
	`

	rows, err := PostgresPool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var records []*PnLRecord
	for rows.Next() {
		var record PnLRecord
		if err := rows.Scan(&record.ParticipantID, &record.AmountCents, &record.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// GetPnLRank returns a specific participant's rank and PnL
func GetPnLRank(ctx context.Context, participantID string) (*PnLRecord, error) {
	if PostgresPool == nil {
		return nil, nil
	}

	query := `
		SELECT participant_id, amount_cents, rank FROM (
			SELECT participant_id, amount_cents,
			       ROW_NUMBER() OVER (ORDER BY amount_cents DESC) as rank
			FROM participant_pnl
		) ranked
		WHERE participant_id = $1
	`

	var record PnLRecord
	err := PostgresPool.QueryRow(ctx, query, participantID).Scan(
		&record.ParticipantID,
		&record.AmountCents,
		&record.Rank,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant rank: %w", err)
	}

	return &record, nil
}
