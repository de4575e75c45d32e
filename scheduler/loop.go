// Package scheduler runs the continuous round cadence: open betting, wait
// out the window, start, drive the live-multiplier clock until the crash,
// pause, repeat. It sits outside the engine on purpose; the engine itself
// has no timers, so everything here is replaceable by an operator console
// or a test driving the same calls by hand.
package scheduler

import (
	"context"
	"log"
	"time"

	"crashengine/config"
	"crashengine/game"
	"crashengine/service"
)

type Config struct {
	BettingWindow   time.Duration
	TickInterval    time.Duration
	InterRoundDelay time.Duration
	CurveRate       float64
}

func DefaultConfig() Config {
	return Config{
		BettingWindow:   config.MinBettingWindow,
		TickInterval:    config.TickInterval,
		InterRoundDelay: config.InterRoundDelay,
		CurveRate:       config.CurveRate,
	}
}

type Loop struct {
	Rounds *service.Rounds
	Cfg    Config
}

func New(rounds *service.Rounds, cfg Config) *Loop {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = config.TickInterval
	}
	return &Loop{Rounds: rounds, Cfg: cfg}
}

// Run cycles rounds until the context is canceled.
func (l *Loop) Run(ctx context.Context) {
	log.Println("🎰 Round scheduler started")

	for {
		if err := l.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				log.Println("🛑 Round scheduler stopped")
				return
			}
			log.Printf("❌ Round cycle failed: %v", err)
		}

		if !sleep(ctx, l.Cfg.InterRoundDelay) {
			log.Println("🛑 Round scheduler stopped")
			return
		}
	}
}

// RunOnce plays a single round start to crash.
func (l *Loop) RunOnce(ctx context.Context) error {
	info, err := l.Rounds.Create(ctx, "")
	if err != nil {
		return err
	}

	if !sleep(ctx, l.Cfg.BettingWindow) {
		// Shutting down mid-window: void the round so stakes are refunded.
		if _, abortErr := l.Rounds.Abort(context.WithoutCancel(ctx), info.RoundID); abortErr != nil {
			log.Printf("⚠️  Failed to void round %d on shutdown: %v", info.RoundID, abortErr)
		}
		return ctx.Err()
	}

	if _, err := l.Rounds.Start(ctx, info.RoundID, false); err != nil {
		// A round that cannot start must not strand its stakes.
		if _, abortErr := l.Rounds.Abort(context.WithoutCancel(ctx), info.RoundID); abortErr != nil {
			log.Printf("⚠️  Failed to void round %d after start failure: %v", info.RoundID, abortErr)
		}
		return err
	}

	startedAt := time.Now()
	ticker := time.NewTicker(l.Cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// The crash point is frozen; drive the round to completion so
			// no bets are left dangling.
			live := game.LiveMultiplier(time.Since(startedAt), l.Cfg.CurveRate)
			for {
				progress, err := l.Rounds.ReportElapsed(context.WithoutCancel(ctx), info.RoundID, live)
				if err != nil || progress.Phase == game.PhaseCrashed {
					return ctx.Err()
				}
				live += 100 // fast-forward a full 1.00x per step
			}
		case <-ticker.C:
			live := game.LiveMultiplier(time.Since(startedAt), l.Cfg.CurveRate)
			progress, err := l.Rounds.ReportElapsed(ctx, info.RoundID, live)
			if err != nil {
				return err
			}
			if progress.Phase == game.PhaseCrashed {
				return nil
			}
		}
	}
}

// sleep waits d or until ctx is done, reporting whether the full wait
// completed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
