package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"crashengine/crypto"
)

// Policy is the configurable house policy for an Engine.
type Policy struct {
	Derive            DeriveParams
	DefaultClientSeed string
	MinBettingWindow  time.Duration
	HistorySize       int
}

func DefaultPolicy() Policy {
	return Policy{
		Derive:            DefaultDeriveParams(),
		DefaultClientSeed: "crash-default-client-seed",
		MinBettingWindow:  5 * time.Second,
		HistorySize:       50,
	}
}

// Engine owns every round. All mutation of a round happens under that
// round's mutex, so concurrent bets, cashouts and elapsed reports on the
// same round serialize; different rounds proceed in parallel. The engine
// itself never runs timers; callers drive it with StartRound and
// ReportElapsed, which keeps every transition testable without waiting on
// a wall clock.
type Engine struct {
	policy Policy
	seeds  *crypto.SeedRegistry

	mu       sync.RWMutex
	rounds   map[int64]*Round
	nextID   int64
	history  []Result
	finished []int64
}

func NewEngine(policy Policy) *Engine {
	if policy.DefaultClientSeed == "" {
		policy.DefaultClientSeed = DefaultPolicy().DefaultClientSeed
	}
	if policy.HistorySize <= 0 {
		policy.HistorySize = DefaultPolicy().HistorySize
	}
	return &Engine{
		policy: policy,
		seeds:  crypto.NewSeedRegistry(),
		rounds: make(map[int64]*Round),
		nextID: 1,
	}
}

// CreateRound opens a new betting round: draws a fresh server seed,
// publishes its commitment and assigns the next round id. The seed itself
// stays inside the engine until the round crashes.
func (e *Engine) CreateRound(clientSeed string) (RoundInfo, error) {
	seed, err := crypto.GenerateServerSeed()
	if err != nil {
		return RoundInfo{}, fmt.Errorf("failed to generate server seed: %w", err)
	}

	hash, err := e.seeds.Commit(seed)
	if err != nil {
		return RoundInfo{}, fmt.Errorf("failed to commit server seed: %w", err)
	}

	if clientSeed == "" {
		clientSeed = e.policy.DefaultClientSeed
	}

	e.mu.Lock()
	id := e.nextID
	e.nextID++

	round := &Round{
		ID:             id,
		ServerSeedHash: hash,
		ClientSeed:     clientSeed,
		serverSeed:     seed,
		Phase:          PhaseBetting,
		CreatedAt:      time.Now(),
		bets:           make(map[string]*Bet),
	}
	e.rounds[id] = round
	e.mu.Unlock()

	return RoundInfo{
		RoundID:        id,
		Phase:          PhaseBetting,
		ServerSeedHash: hash,
		ClientSeed:     clientSeed,
		CreatedAt:      round.CreatedAt,
	}, nil
}

func (e *Engine) lookup(roundID int64) (*Round, error) {
	e.mu.RLock()
	round, ok := e.rounds[roundID]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRound, roundID)
	}
	return round, nil
}

// SetClientSeed replaces the round's client seed while betting is open.
// Last writer wins; the value in place when the round starts is the one
// mixed into the outcome.
func (e *Engine) SetClientSeed(roundID int64, clientSeed string) error {
	if clientSeed == "" {
		return ErrEmptyClientSeed
	}

	round, err := e.lookup(roundID)
	if err != nil {
		return err
	}

	round.mu.Lock()
	defer round.mu.Unlock()

	if round.Phase != PhaseBetting {
		return fmt.Errorf("%w: set client seed in %s", ErrPhase, round.Phase)
	}
	round.ClientSeed = clientSeed
	return nil
}

// PlaceBet records a stake for a participant. One bet per participant per
// round; balance checks are the wallet collaborator's job before this is
// called. autoCashOut of 0 means manual cashout only.
func (e *Engine) PlaceBet(roundID int64, participantID string, stakeCents int64, autoCashOut Multiplier) (BetView, error) {
	round, err := e.lookup(roundID)
	if err != nil {
		return BetView{}, err
	}

	round.mu.Lock()
	defer round.mu.Unlock()

	if round.Phase != PhaseBetting {
		return BetView{}, fmt.Errorf("%w: place bet in %s", ErrPhase, round.Phase)
	}
	if stakeCents <= 0 {
		return BetView{}, fmt.Errorf("%w: %d", ErrInvalidStake, stakeCents)
	}
	if autoCashOut != 0 && autoCashOut < MinMultiplier {
		return BetView{}, fmt.Errorf("%w: auto cashout %s", ErrMultiplierTooSmall, autoCashOut)
	}
	if _, ok := round.bets[participantID]; ok {
		return BetView{}, fmt.Errorf("%w: %s", ErrDuplicateBet, participantID)
	}

	bet := &Bet{
		BetID:         uuid.NewString(),
		ParticipantID: participantID,
		StakeCents:    stakeCents,
		AutoCashOut:   autoCashOut,
		Status:        BetActive,
		PlacedAt:      time.Now(),
	}
	round.bets[participantID] = bet

	return bet.view(), nil
}

// StartRound locks betting and freezes the crash point. The multiplier is
// derived here, once, from the committed seed, the client seed and the
// round id; nothing about it is returned to the caller. Unless force is
// set, the round must have been open for at least the minimum betting
// window.
func (e *Engine) StartRound(roundID int64, force bool) (RoundInfo, error) {
	round, err := e.lookup(roundID)
	if err != nil {
		return RoundInfo{}, err
	}

	round.mu.Lock()
	defer round.mu.Unlock()

	if round.Phase != PhaseBetting {
		return RoundInfo{}, fmt.Errorf("%w: start round in %s", ErrPhase, round.Phase)
	}
	if !force {
		if open := time.Since(round.CreatedAt); open < e.policy.MinBettingWindow {
			return RoundInfo{}, fmt.Errorf("%w: open for %s of %s",
				ErrBettingWindowOpen, open.Round(time.Millisecond), e.policy.MinBettingWindow)
		}
	}

	crash, err := DeriveCrashPoint(round.serverSeed, round.ClientSeed, round.ID, e.policy.Derive)
	if err != nil {
		return RoundInfo{}, fmt.Errorf("failed to derive crash point: %w", err)
	}

	round.crashPoint = crash
	round.Phase = PhaseRunning
	round.StartedAt = time.Now()
	round.lastLive = MinMultiplier

	return RoundInfo{
		RoundID:        round.ID,
		Phase:          PhaseRunning,
		ServerSeedHash: round.ServerSeedHash,
		ClientSeed:     round.ClientSeed,
		CreatedAt:      round.CreatedAt,
		StartedAt:      round.StartedAt,
	}, nil
}

// ReportElapsed feeds the engine the renderer clock's current live
// multiplier. Auto-cashout targets reached below the crash point settle as
// wins; once the live value reaches the frozen crash point the round
// crashes, the seed is revealed and every remaining bet is finalized as a
// loss. Reports on an already-crashed round return its final state, so a
// renderer that races the crash tick sees a consistent answer.
func (e *Engine) ReportElapsed(roundID int64, live Multiplier) (Progress, error) {
	round, err := e.lookup(roundID)
	if err != nil {
		return Progress{}, err
	}

	round.mu.Lock()
	defer round.mu.Unlock()

	switch round.Phase {
	case PhaseCrashed:
		return Progress{
			RoundID:    round.ID,
			Phase:      PhaseCrashed,
			Live:       round.lastLive.Float64(),
			CrashPoint: round.crashPoint.Float64(),
			ServerSeed: round.serverSeed,
		}, nil
	case PhaseRunning:
	default:
		return Progress{}, fmt.Errorf("%w: report elapsed in %s", ErrPhase, round.Phase)
	}

	if live < MinMultiplier {
		live = MinMultiplier
	}
	if live > round.lastLive {
		round.lastLive = live
	}

	var settlements []Settlement

	// Auto-cashouts fire for targets the curve has reached, but only below
	// the crash point: a target at or past it was never reachable.
	for _, bet := range round.bets {
		if bet.Status != BetActive || bet.AutoCashOut == 0 {
			continue
		}
		if bet.AutoCashOut <= live && bet.AutoCashOut < round.crashPoint {
			target := bet.AutoCashOut
			bet.CashOut = &target
			bet.PayoutCents = target.Payout(bet.StakeCents)
			bet.Status = BetCashedOut
			bet.SettledAt = time.Now()
			settlements = append(settlements, Settlement{
				RoundID:       round.ID,
				BetID:         bet.BetID,
				ParticipantID: bet.ParticipantID,
				Status:        BetCashedOut,
				Multiplier:    target.Float64(),
				PayoutCents:   bet.PayoutCents,
			})
		}
	}

	if live >= round.crashPoint {
		round.Phase = PhaseCrashed
		round.CrashedAt = time.Now()
		round.lastLive = round.crashPoint

		for _, bet := range round.bets {
			if bet.Status != BetActive {
				continue
			}
			bet.Status = BetLost
			bet.SettledAt = round.CrashedAt
			settlements = append(settlements, Settlement{
				RoundID:       round.ID,
				BetID:         bet.BetID,
				ParticipantID: bet.ParticipantID,
				Status:        BetLost,
			})
		}

		e.archive(round.result())

		return Progress{
			RoundID:     round.ID,
			Phase:       PhaseCrashed,
			Live:        round.crashPoint.Float64(),
			CrashPoint:  round.crashPoint.Float64(),
			ServerSeed:  round.serverSeed,
			Settlements: settlements,
			JustCrashed: true,
		}, nil
	}

	return Progress{
		RoundID:     round.ID,
		Phase:       PhaseRunning,
		Live:        round.lastLive.Float64(),
		Settlements: settlements,
	}, nil
}

// CashOut settles a participant's bet at the requested multiplier. The
// request is judged against the frozen crash point and the highest live
// multiplier reported so far, never against anything the client claims the
// clock shows.
func (e *Engine) CashOut(roundID int64, participantID string, requested Multiplier) (CashOutResult, error) {
	round, err := e.lookup(roundID)
	if err != nil {
		return CashOutResult{}, err
	}

	round.mu.Lock()
	defer round.mu.Unlock()

	switch round.Phase {
	case PhaseRunning:
	case PhaseCrashed:
		// The cashout window closed at the crash, whatever the requested value.
		return CashOutResult{}, fmt.Errorf("%w: round %d already crashed", ErrTooLate, round.ID)
	default:
		return CashOutResult{}, fmt.Errorf("%w: cash out in %s", ErrPhase, round.Phase)
	}

	if requested < MinMultiplier {
		return CashOutResult{}, fmt.Errorf("%w: %s", ErrMultiplierTooSmall, requested)
	}

	bet, ok := round.bets[participantID]
	if !ok {
		return CashOutResult{}, fmt.Errorf("%w: %s", ErrNoBet, participantID)
	}
	if bet.Status == BetCashedOut {
		return CashOutResult{}, fmt.Errorf("%w: %s", ErrAlreadyCashedOut, bet.BetID)
	}
	// The clock guard is checked first. While the round is running the
	// reported live value is strictly below the frozen crash point, so
	// every rejection here depends only on public information and the
	// error kind reveals nothing about where the crash point sits.
	if requested > round.lastLive {
		return CashOutResult{}, fmt.Errorf("%w: %s, live %s", ErrMultiplierAhead, requested, round.lastLive)
	}
	// Unreachable while running; kept as a safety net should the live
	// invariant ever break.
	if requested >= round.crashPoint {
		return CashOutResult{}, fmt.Errorf("%w: %s at crash %s", ErrTooLate, requested, round.crashPoint)
	}

	m := requested
	bet.CashOut = &m
	bet.PayoutCents = m.Payout(bet.StakeCents)
	bet.Status = BetCashedOut
	bet.SettledAt = time.Now()

	return CashOutResult{
		RoundID:       round.ID,
		BetID:         bet.BetID,
		ParticipantID: participantID,
		Multiplier:    m.Float64(),
		PayoutCents:   bet.PayoutCents,
	}, nil
}

// AbortRound voids a round that never started. Bets flip to refunded and
// the refund settlements are returned for the wallet collaborator to act
// on. Running rounds cannot be aborted: their crash point is already
// frozen. The voided round's seed is never reused.
func (e *Engine) AbortRound(roundID int64) ([]Settlement, error) {
	round, err := e.lookup(roundID)
	if err != nil {
		return nil, err
	}

	round.mu.Lock()
	defer round.mu.Unlock()

	if round.Phase != PhaseBetting {
		return nil, fmt.Errorf("%w: abort round in %s", ErrPhase, round.Phase)
	}

	round.Phase = PhaseVoid

	e.mu.Lock()
	e.retireLocked(round.ID)
	e.mu.Unlock()

	var refunds []Settlement
	for _, bet := range round.bets {
		bet.Status = BetRefunded
		bet.PayoutCents = bet.StakeCents
		bet.SettledAt = time.Now()
		refunds = append(refunds, Settlement{
			RoundID:       round.ID,
			BetID:         bet.BetID,
			ParticipantID: bet.ParticipantID,
			Status:        BetRefunded,
			PayoutCents:   bet.StakeCents,
		})
	}

	return refunds, nil
}

// Snapshot returns the phase-appropriate public view of a round.
func (e *Engine) Snapshot(roundID int64) (RoundSnapshot, error) {
	round, err := e.lookup(roundID)
	if err != nil {
		return RoundSnapshot{}, err
	}

	round.mu.Lock()
	defer round.mu.Unlock()
	return round.snapshot(), nil
}

// Revealed returns the fairness tuple for a crashed round.
func (e *Engine) Revealed(roundID int64) (RevealedRound, error) {
	round, err := e.lookup(roundID)
	if err != nil {
		return RevealedRound{}, err
	}

	round.mu.Lock()
	defer round.mu.Unlock()

	if round.Phase != PhaseCrashed {
		return RevealedRound{}, fmt.Errorf("%w: reveal in %s", ErrPhase, round.Phase)
	}

	return RevealedRound{
		RoundID:         round.ID,
		ServerSeed:      round.serverSeed,
		ServerSeedHash:  round.ServerSeedHash,
		ClientSeed:      round.ClientSeed,
		CrashMultiplier: round.crashPoint.Float64(),
	}, nil
}

// ResultOf returns the archive entry for a crashed round.
func (e *Engine) ResultOf(roundID int64) (Result, error) {
	round, err := e.lookup(roundID)
	if err != nil {
		return Result{}, err
	}

	round.mu.Lock()
	defer round.mu.Unlock()

	if round.Phase != PhaseCrashed {
		return Result{}, fmt.Errorf("%w: result in %s", ErrPhase, round.Phase)
	}
	return round.result(), nil
}

// DeriveParams exposes the engine's derivation policy so verification of
// this engine's rounds uses the same house numbers.
func (e *Engine) DeriveParams() DeriveParams {
	return e.policy.Derive
}

// History returns the most recent crashed rounds, newest last.
func (e *Engine) History() []Result {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Result, len(e.history))
	copy(out, e.history)
	return out
}

func (e *Engine) archive(res Result) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.history = append(e.history, res)
	if len(e.history) > e.policy.HistorySize {
		e.history = e.history[len(e.history)-e.policy.HistorySize:]
	}
	e.retireLocked(res.RoundID)
}

// retireLocked bounds the authoritative round map. Finished rounds beyond
// the retention window are evicted; older rounds are served from the durable
// archive. Caller holds e.mu.
func (e *Engine) retireLocked(roundID int64) {
	e.finished = append(e.finished, roundID)
	for len(e.finished) > e.policy.HistorySize {
		delete(e.rounds, e.finished[0])
		e.finished = e.finished[1:]
	}
}
