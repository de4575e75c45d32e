// Package service wires the round engine to its collaborators: the wallet
// debits and credits around each engine transition, settled rounds are
// archived to PostgreSQL, live bets are mirrored in Redis and every event
// is fanned out over the websocket hub. The HTTP handlers and the round
// scheduler both drive rounds through this layer so side effects happen
// exactly once, in one place.
package service

import (
	"context"
	"log"

	"crashengine/db"
	"crashengine/game"
	"crashengine/wallet"
	"crashengine/ws"
)

// Event types broadcast over the websocket feed.
const (
	EventRoundCreated = "round_created"
	EventBetPlaced    = "bet_placed"
	EventRoundStarted = "round_started"
	EventTick         = "tick"
	EventCashOut      = "cashout"
	EventRoundCrashed = "round_crashed"
	EventRoundVoid    = "round_void"
)

// Rounds drives the engine and performs the surrounding side effects.
type Rounds struct {
	Engine *game.Engine
	Wallet wallet.Service
}

func NewRounds(engine *game.Engine, w wallet.Service) *Rounds {
	return &Rounds{Engine: engine, Wallet: w}
}

// Create opens a new betting round and announces its commitment.
func (s *Rounds) Create(ctx context.Context, clientSeed string) (game.RoundInfo, error) {
	info, err := s.Engine.CreateRound(clientSeed)
	if err != nil {
		return game.RoundInfo{}, err
	}

	ws.Broadcast(EventRoundCreated, info)
	log.Printf("🎲 Round %d open for betting - commitment %s", info.RoundID, info.ServerSeedHash)
	return info, nil
}

// PlaceBet debits the stake, records the bet and mirrors it into Redis.
// If the engine rejects the bet the debit is reversed.
func (s *Rounds) PlaceBet(ctx context.Context, roundID int64, participantID string, stakeCents int64, autoCashOut game.Multiplier) (game.BetView, error) {
	if err := s.Wallet.Debit(ctx, participantID, stakeCents); err != nil {
		return game.BetView{}, err
	}

	bet, err := s.Engine.PlaceBet(roundID, participantID, stakeCents, autoCashOut)
	if err != nil {
		if creditErr := s.Wallet.Credit(ctx, participantID, stakeCents); creditErr != nil {
			log.Printf("❌ Failed to reverse debit for %s: %v", participantID, creditErr)
		}
		return game.BetView{}, err
	}

	if err := db.SubtractPnL(ctx, participantID, stakeCents); err != nil {
		log.Printf("⚠️  Failed to update PnL for %s: %v", participantID, err)
	}
	if err := db.StoreActiveBet(ctx, roundID, &db.ActiveBetData{
		BetID:            bet.BetID,
		ParticipantID:    participantID,
		StakeCents:       stakeCents,
		AutoCashOutCents: int64(autoCashOut),
		PlacedAt:         bet.PlacedAt,
	}); err != nil {
		log.Printf("⚠️  Failed to mirror bet to Redis: %v", err)
	}

	ws.Broadcast(EventBetPlaced, bet)
	return bet, nil
}

// SetClientSeed updates the client seed while betting is open.
func (s *Rounds) SetClientSeed(ctx context.Context, roundID int64, clientSeed string) error {
	return s.Engine.SetClientSeed(roundID, clientSeed)
}

// Start locks betting and freezes the crash point without revealing it.
func (s *Rounds) Start(ctx context.Context, roundID int64, force bool) (game.RoundInfo, error) {
	info, err := s.Engine.StartRound(roundID, force)
	if err != nil {
		return game.RoundInfo{}, err
	}

	ws.Broadcast(EventRoundStarted, info)
	log.Printf("🚀 Round %d running", info.RoundID)
	return info, nil
}

// ReportElapsed feeds the live multiplier into the engine and settles
// whatever the report resolves: auto-cashouts pay out immediately, and a
// crash archives the round, reveals the seed and finalizes the losses.
func (s *Rounds) ReportElapsed(ctx context.Context, roundID int64, live game.Multiplier) (game.Progress, error) {
	progress, err := s.Engine.ReportElapsed(roundID, live)
	if err != nil {
		return game.Progress{}, err
	}

	for _, settled := range progress.Settlements {
		s.applySettlement(ctx, settled)
	}

	if progress.JustCrashed {
		s.finalizeCrash(ctx, progress)
	} else if progress.Phase == game.PhaseRunning {
		ws.Broadcast(EventTick, map[string]interface{}{
			"roundId":        progress.RoundID,
			"liveMultiplier": progress.Live,
		})
	}

	return progress, nil
}

func (s *Rounds) applySettlement(ctx context.Context, settled game.Settlement) {
	switch settled.Status {
	case game.BetCashedOut:
		if err := s.Wallet.Credit(ctx, settled.ParticipantID, settled.PayoutCents); err != nil {
			log.Printf("❌ Failed to credit payout for %s: %v", settled.ParticipantID, err)
		}
		if err := db.AddPnL(ctx, settled.ParticipantID, settled.PayoutCents); err != nil {
			log.Printf("⚠️  Failed to update PnL for %s: %v", settled.ParticipantID, err)
		}
		if err := db.DeleteActiveBet(ctx, settled.RoundID, settled.ParticipantID); err != nil {
			log.Printf("⚠️  Failed to clear bet mirror: %v", err)
		}
		if err := db.StoreCashedOut(ctx, &db.CashedOutData{
			BetID:         settled.BetID,
			ParticipantID: settled.ParticipantID,
			RoundID:       settled.RoundID,
			CashOutCents:  int64(game.MultiplierFromFloat(settled.Multiplier)),
			PayoutCents:   settled.PayoutCents,
		}); err != nil {
			log.Printf("⚠️  Failed to store cashout marker: %v", err)
		}
		ws.Broadcast(EventCashOut, settled)

	case game.BetLost:
		if err := db.DeleteActiveBet(ctx, settled.RoundID, settled.ParticipantID); err != nil {
			log.Printf("⚠️  Failed to clear bet mirror: %v", err)
		}

	case game.BetRefunded:
		if err := s.Wallet.Credit(ctx, settled.ParticipantID, settled.PayoutCents); err != nil {
			log.Printf("❌ Failed to refund %s: %v", settled.ParticipantID, err)
		}
		if err := db.AddPnL(ctx, settled.ParticipantID, settled.PayoutCents); err != nil {
			log.Printf("⚠️  Failed to update PnL for %s: %v", settled.ParticipantID, err)
		}
	}
}

func (s *Rounds) finalizeCrash(ctx context.Context, progress game.Progress) {
	result, err := s.Engine.ResultOf(progress.RoundID)
	if err != nil {
		log.Printf("❌ Failed to read result of round %d: %v", progress.RoundID, err)
		return
	}

	if err := db.StoreRoundResult(ctx, result); err != nil {
		log.Printf("⚠️  Failed to archive round %d: %v", progress.RoundID, err)
	}
	if err := db.CleanupRound(ctx, progress.RoundID); err != nil {
		log.Printf("⚠️  Failed to cleanup Redis for round %d: %v", progress.RoundID, err)
	}

	ws.Broadcast(EventRoundCrashed, result)
	log.Printf("💥 Round %d crashed at %.2fx - seed revealed", progress.RoundID, progress.CrashPoint)
}

// CashOut settles a manual cashout and credits the payout.
func (s *Rounds) CashOut(ctx context.Context, roundID int64, participantID string, requested game.Multiplier) (game.CashOutResult, error) {
	result, err := s.Engine.CashOut(roundID, participantID, requested)
	if err != nil {
		return game.CashOutResult{}, err
	}

	s.applySettlement(ctx, game.Settlement{
		RoundID:       result.RoundID,
		BetID:         result.BetID,
		ParticipantID: result.ParticipantID,
		Status:        game.BetCashedOut,
		Multiplier:    result.Multiplier,
		PayoutCents:   result.PayoutCents,
	})

	log.Printf("💰 %s cashed out round %d at %.2fx for %d cents",
		participantID, roundID, result.Multiplier, result.PayoutCents)
	return result, nil
}

// Abort voids a betting-phase round and refunds every stake.
func (s *Rounds) Abort(ctx context.Context, roundID int64) ([]game.Settlement, error) {
	refunds, err := s.Engine.AbortRound(roundID)
	if err != nil {
		return nil, err
	}

	for _, refund := range refunds {
		s.applySettlement(ctx, refund)
	}
	if err := db.CleanupRound(ctx, roundID); err != nil {
		log.Printf("⚠️  Failed to cleanup Redis for round %d: %v", roundID, err)
	}

	ws.Broadcast(EventRoundVoid, map[string]interface{}{
		"roundId": roundID,
		"refunds": len(refunds),
	})
	log.Printf("🚫 Round %d voided, %d bets refunded", roundID, len(refunds))
	return refunds, nil
}
