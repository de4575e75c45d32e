package service

import (
	"context"
	"errors"
	"testing"

	"crashengine/game"
	"crashengine/wallet"
)

func testRounds() *Rounds {
	policy := game.DefaultPolicy()
	policy.MinBettingWindow = 0
	policy.Derive.InstantCrashBP = 0
	return NewRounds(game.NewEngine(policy), wallet.NewMemory(100000))
}

func balanceOf(t *testing.T, s *Rounds, participant string) int64 {
	t.Helper()
	bal, err := s.Wallet.Balance(context.Background(), participant)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	return bal
}

// runningRoundAbove creates funded rounds until one survives a live report
// at the given multiplier, so a cashout below it is guaranteed to land.
func runningRoundAbove(t *testing.T, s *Rounds, live game.Multiplier, participant string, stake int64) int64 {
	t.Helper()
	ctx := context.Background()

	for attempt := 0; attempt < 500; attempt++ {
		info, err := s.Create(ctx, "")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if _, err := s.PlaceBet(ctx, info.RoundID, participant, stake, 0); err != nil {
			t.Fatalf("PlaceBet failed: %v", err)
		}
		if _, err := s.Start(ctx, info.RoundID, false); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		progress, err := s.ReportElapsed(ctx, info.RoundID, live)
		if err != nil {
			t.Fatalf("ReportElapsed failed: %v", err)
		}
		if progress.Phase == game.PhaseRunning {
			return info.RoundID
		}
	}

	t.Fatalf("no round survived %s in 500 attempts", live)
	return 0
}

func TestPlaceBetDebitsStake(t *testing.T) {
	s := testRounds()
	ctx := context.Background()

	info, err := s.Create(ctx, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.PlaceBet(ctx, info.RoundID, "p1", 2500, 0); err != nil {
		t.Fatalf("PlaceBet failed: %v", err)
	}
	if bal := balanceOf(t, s, "p1"); bal != 97500 {
		t.Errorf("stake not debited: balance %d", bal)
	}
}

func TestPlaceBetReversesDebitOnRejection(t *testing.T) {
	s := testRounds()
	ctx := context.Background()

	info, err := s.Create(ctx, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.Start(ctx, info.RoundID, false); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Betting is closed, so the engine rejects and the debit is rolled back.
	if _, err := s.PlaceBet(ctx, info.RoundID, "p1", 2500, 0); !errors.Is(err, game.ErrPhase) {
		t.Fatalf("expected ErrPhase, got %v", err)
	}
	if bal := balanceOf(t, s, "p1"); bal != 100000 {
		t.Errorf("rejected bet left the balance at %d", bal)
	}
}

func TestPlaceBetInsufficientFunds(t *testing.T) {
	s := testRounds()
	ctx := context.Background()

	info, err := s.Create(ctx, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.PlaceBet(ctx, info.RoundID, "p1", 100001, 0); !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// The engine never saw the bet; a proper stake still goes through.
	if _, err := s.PlaceBet(ctx, info.RoundID, "p1", 1000, 0); err != nil {
		t.Errorf("follow-up bet rejected: %v", err)
	}
}

func TestCashOutCreditsPayout(t *testing.T) {
	s := testRounds()
	ctx := context.Background()

	roundID := runningRoundAbove(t, s, 200, "p1", 1000)

	result, err := s.CashOut(ctx, roundID, "p1", 150)
	if err != nil {
		t.Fatalf("CashOut failed: %v", err)
	}
	if result.PayoutCents != 1500 {
		t.Errorf("expected payout 1500, got %d", result.PayoutCents)
	}

	// 100000 initial - 1000 stake + 1500 payout.
	if bal := balanceOf(t, s, "p1"); bal != 100500 {
		t.Errorf("payout not credited: balance %d", bal)
	}
}

func TestLostStakeStaysDebited(t *testing.T) {
	s := testRounds()
	ctx := context.Background()

	roundID := runningRoundAbove(t, s, 110, "p1", 1000)

	progress, err := s.ReportElapsed(ctx, roundID, 10000000)
	if err != nil {
		t.Fatalf("ReportElapsed failed: %v", err)
	}
	if progress.Phase != game.PhaseCrashed {
		t.Fatalf("expected crash, got %s", progress.Phase)
	}
	if bal := balanceOf(t, s, "p1"); bal != 99000 {
		t.Errorf("lost stake should stay debited, balance %d", bal)
	}
}

func TestAutoCashOutCreditsAtTarget(t *testing.T) {
	s := testRounds()
	ctx := context.Background()

	for attempt := 0; attempt < 500; attempt++ {
		info, err := s.Create(ctx, "")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		participant := info.ServerSeedHash[:12] // fresh ledger entry per attempt
		if _, err := s.PlaceBet(ctx, info.RoundID, participant, 1000, 150); err != nil {
			t.Fatalf("PlaceBet failed: %v", err)
		}
		if _, err := s.Start(ctx, info.RoundID, false); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		progress, err := s.ReportElapsed(ctx, info.RoundID, 160)
		if err != nil {
			t.Fatalf("ReportElapsed failed: %v", err)
		}
		if progress.Phase != game.PhaseRunning {
			continue // crashed before the target, try another round
		}

		if bal := balanceOf(t, s, participant); bal != 100500 {
			t.Errorf("auto payout not credited: balance %d", bal)
		}
		return
	}
	t.Fatal("no round survived the auto target in 500 attempts")
}

func TestAbortRefundsStakes(t *testing.T) {
	s := testRounds()
	ctx := context.Background()

	info, err := s.Create(ctx, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.PlaceBet(ctx, info.RoundID, "p1", 1000, 0); err != nil {
		t.Fatalf("PlaceBet failed: %v", err)
	}
	if _, err := s.PlaceBet(ctx, info.RoundID, "p2", 700, 0); err != nil {
		t.Fatalf("PlaceBet failed: %v", err)
	}

	refunds, err := s.Abort(ctx, info.RoundID)
	if err != nil {
		t.Fatalf("Abort failed: %v", err)
	}
	if len(refunds) != 2 {
		t.Fatalf("expected 2 refunds, got %d", len(refunds))
	}
	if bal := balanceOf(t, s, "p1"); bal != 100000 {
		t.Errorf("p1 not made whole: %d", bal)
	}
	if bal := balanceOf(t, s, "p2"); bal != 100000 {
		t.Errorf("p2 not made whole: %d", bal)
	}
}
