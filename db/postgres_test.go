package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"crashengine/game"
)

func initTestPostgres(t *testing.T) {
	t.Helper()

	_ = godotenv.Load("../.env")

	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set")
	}
	if PostgresPool == nil {
		if err := InitPostgres(); err != nil {
			t.Fatalf("Failed to init postgres: %v", err)
		}
	}
}

func TestRoundArchive(t *testing.T) {
	initTestPostgres(t)
	ctx := context.Background()

	const roundID = int64(900001)
	_, _ = PostgresPool.Exec(ctx, "DELETE FROM round_bets WHERE round_id = $1", roundID)
	_, _ = PostgresPool.Exec(ctx, "DELETE FROM round_history WHERE round_id = $1", roundID)

	cashedAt := 1.5
	result := game.Result{
		RoundID:         roundID,
		ServerSeed:      "testseed-900001",
		ServerSeedHash:  "testhash-900001",
		ClientSeed:      "client-900001",
		CrashMultiplier: 2.47,
		StartedAt:       time.Now().Add(-10 * time.Second),
		CrashedAt:       time.Now(),
		Bets: []game.BetView{
			{
				BetID:         "bet-1",
				ParticipantID: "test-winner",
				StakeCents:    1000,
				CashOut:       &cashedAt,
				PayoutCents:   1500,
				Status:        game.BetCashedOut,
				PlacedAt:      time.Now().Add(-15 * time.Second),
			},
			{
				BetID:         "bet-2",
				ParticipantID: "test-loser",
				StakeCents:    500,
				Status:        game.BetLost,
				PlacedAt:      time.Now().Add(-14 * time.Second),
			},
		},
	}

	t.Run("StoreAndRead", func(t *testing.T) {
		if err := StoreRoundResult(ctx, result); err != nil {
			t.Fatalf("StoreRoundResult failed: %v", err)
		}

		record, err := GetRoundResult(ctx, roundID)
		if err != nil {
			t.Fatalf("GetRoundResult failed: %v", err)
		}
		if record == nil {
			t.Fatal("Expected record, got nil")
		}
		if record.CrashCents != 247 {
			t.Errorf("Expected crash 247 cents, got %d", record.CrashCents)
		}
		if record.ServerSeed != result.ServerSeed {
			t.Errorf("Seed mismatch: %q", record.ServerSeed)
		}
	})

	t.Run("ReadBets", func(t *testing.T) {
		bets, err := GetRoundBets(ctx, roundID)
		if err != nil {
			t.Fatalf("GetRoundBets failed: %v", err)
		}
		if len(bets) != 2 {
			t.Fatalf("Expected 2 bets, got %d", len(bets))
		}
		// Ordered by placed_at, the winner came first.
		if bets[0].ParticipantID != "test-winner" || bets[0].PayoutCents != 1500 {
			t.Errorf("Unexpected first bet: %+v", bets[0])
		}
		if bets[0].CashOutCents == nil || *bets[0].CashOutCents != 150 {
			t.Errorf("Winner cashout not recorded: %v", bets[0].CashOutCents)
		}
		if bets[1].Status != game.BetLost {
			t.Errorf("Expected lost status, got %s", bets[1].Status)
		}
	})

	t.Run("ReplayIsHarmless", func(t *testing.T) {
		if err := StoreRoundResult(ctx, result); err != nil {
			t.Fatalf("Replay failed: %v", err)
		}
		bets, err := GetRoundBets(ctx, roundID)
		if err != nil {
			t.Fatalf("GetRoundBets failed: %v", err)
		}
		if len(bets) != 2 {
			t.Errorf("Replay duplicated bets: %d", len(bets))
		}
	})

	t.Run("MissingRound", func(t *testing.T) {
		record, err := GetRoundResult(ctx, 900999)
		if err != nil {
			t.Fatalf("GetRoundResult failed: %v", err)
		}
		if record != nil {
			t.Errorf("Expected nil for a missing round, got %+v", record)
		}
	})

	_, _ = PostgresPool.Exec(ctx, "DELETE FROM round_bets WHERE round_id = $1", roundID)
	_, _ = PostgresPool.Exec(ctx, "DELETE FROM round_history WHERE round_id = $1", roundID)
}

func TestParticipantPnL(t *testing.T) {
	initTestPostgres(t)
	ctx := context.Background()

	const participant = "test-pnl-participant"
	_, _ = PostgresPool.Exec(ctx, "DELETE FROM participant_pnl WHERE participant_id = $1", participant)

	t.Run("SubtractCreatesRow", func(t *testing.T) {
		if err := SubtractPnL(ctx, participant, 1000); err != nil {
			t.Fatalf("SubtractPnL failed: %v", err)
		}
		record, err := GetPnLRank(ctx, participant)
		if err != nil {
			t.Fatalf("GetPnLRank failed: %v", err)
		}
		if record == nil || record.AmountCents != -1000 {
			t.Fatalf("Expected -1000 cents, got %+v", record)
		}
	})

	t.Run("AddAccumulates", func(t *testing.T) {
		if err := AddPnL(ctx, participant, 2500); err != nil {
			t.Fatalf("AddPnL failed: %v", err)
		}
		record, err := GetPnLRank(ctx, participant)
		if err != nil {
			t.Fatalf("GetPnLRank failed: %v", err)
		}
		if record.AmountCents != 1500 {
			t.Errorf("Expected 1500 cents, got %d", record.AmountCents)
		}
	})

	t.Run("Leaderboard", func(t *testing.T) {
		records, err := GetPnLLeaderboard(ctx, 10)
		if err != nil {
			t.Fatalf("GetPnLLeaderboard failed: %v", err)
		}
		if len(records) == 0 {
			t.Fatal("Expected at least one record")
		}
		for i := 1; i < len(records); i++ {
			if records[i].AmountCents > records[i-1].AmountCents {
				t.Error("Leaderboard not sorted DESC by amount")
				break
			}
		}
	})

	_, _ = PostgresPool.Exec(ctx, "DELETE FROM participant_pnl WHERE participant_id = $1", participant)
}
