package game

import (
	"sort"
	"sync"
	"time"
)

type Phase string

const (
	PhaseBetting Phase = "betting"
	PhaseRunning Phase = "running"
	PhaseCrashed Phase = "crashed"
	PhaseVoid    Phase = "void"
)

// Bet statuses as persisted and broadcast.
const (
	BetActive    = "active"
	BetCashedOut = "cashed_out"
	BetLost      = "lost"
	BetRefunded  = "refunded"
)

// Bet is one participant's stake in a round. Money is integer cents.
type Bet struct {
	BetID         string
	ParticipantID string
	StakeCents    int64
	AutoCashOut   Multiplier // 0 = manual cashout only
	CashOut       *Multiplier
	PayoutCents   int64
	Status        string
	PlacedAt      time.Time
	SettledAt     time.Time
}

// Round is the authoritative state of one game cycle. The zero-leak rule:
// serverSeed and crashPoint stay unexported and are only surfaced through
// snapshots once the round has crashed.
type Round struct {
	mu sync.Mutex

	ID             int64
	ServerSeedHash string
	ClientSeed     string

	serverSeed string
	crashPoint Multiplier // frozen at start, 0 while betting

	Phase     Phase
	CreatedAt time.Time
	StartedAt time.Time
	CrashedAt time.Time

	// Highest live multiplier reported so far. Cashouts are validated
	// against this and the frozen crash point, never against a value the
	// caller echoes back.
	lastLive Multiplier

	bets map[string]*Bet
}

/* =========================
   VIEW TYPES
========================= */

// BetView is the JSON-safe projection of a Bet.
type BetView struct {
	BetID         string    `json:"betId"`
	ParticipantID string    `json:"participantId"`
	StakeCents    int64     `json:"stakeCents"`
	AutoCashOut   float64   `json:"autoCashOut,omitempty"`
	CashOut       *float64  `json:"cashOut,omitempty"`
	PayoutCents   int64     `json:"payoutCents"`
	Status        string    `json:"status"`
	PlacedAt      time.Time `json:"placedAt"`
}

// RoundInfo is what round creation and start return to clients: the
// commitment, never the seed or the crash point.
type RoundInfo struct {
	RoundID        int64     `json:"roundId"`
	Phase          Phase     `json:"phase"`
	ServerSeedHash string    `json:"serverSeedHash"`
	ClientSeed     string    `json:"clientSeed"`
	CreatedAt      time.Time `json:"createdAt"`
	StartedAt      time.Time `json:"startedAt,omitempty"`
}

// Settlement records one bet resolved during a phase transition or
// auto-cashout sweep.
type Settlement struct {
	RoundID       int64   `json:"roundId"`
	BetID         string  `json:"betId"`
	ParticipantID string  `json:"participantId"`
	Status        string  `json:"status"`
	Multiplier    float64 `json:"multiplier,omitempty"`
	PayoutCents   int64   `json:"payoutCents"`
}

// Progress is the result of a live-multiplier report. CrashPoint and
// ServerSeed are populated only once the round has crashed.
type Progress struct {
	RoundID     int64        `json:"roundId"`
	Phase       Phase        `json:"phase"`
	Live        float64      `json:"liveMultiplier"`
	CrashPoint  float64      `json:"crashMultiplier,omitempty"`
	ServerSeed  string       `json:"serverSeed,omitempty"`
	Settlements []Settlement `json:"settlements,omitempty"`

	// JustCrashed marks the report that performed the RUNNING -> CRASHED
	// transition, so callers archive and reveal exactly once.
	JustCrashed bool `json:"-"`
}

// CashOutResult is a successful cashout.
type CashOutResult struct {
	RoundID       int64   `json:"roundId"`
	BetID         string  `json:"betId"`
	ParticipantID string  `json:"participantId"`
	Multiplier    float64 `json:"multiplier"`
	PayoutCents   int64   `json:"payoutCents"`
}

// Result is the archive entry for a finished round, with the seed revealed.
type Result struct {
	RoundID         int64     `json:"roundId"`
	ServerSeed      string    `json:"serverSeed"`
	ServerSeedHash  string    `json:"serverSeedHash"`
	ClientSeed      string    `json:"clientSeed"`
	CrashMultiplier float64   `json:"crashMultiplier"`
	StartedAt       time.Time `json:"startedAt"`
	CrashedAt       time.Time `json:"crashedAt"`
	Bets            []BetView `json:"bets"`
}

// RoundSnapshot is the phase-aware public view of a round.
type RoundSnapshot struct {
	RoundID         int64     `json:"roundId"`
	Phase           Phase     `json:"phase"`
	ServerSeedHash  string    `json:"serverSeedHash"`
	ClientSeed      string    `json:"clientSeed"`
	ServerSeed      string    `json:"serverSeed,omitempty"`      // revealed after crash
	CrashMultiplier float64   `json:"crashMultiplier,omitempty"` // revealed after crash
	LiveMultiplier  float64   `json:"liveMultiplier,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	StartedAt       time.Time `json:"startedAt,omitempty"`
	CrashedAt       time.Time `json:"crashedAt,omitempty"`
	Bets            []BetView `json:"bets"`
}

func (b *Bet) view() BetView {
	v := BetView{
		BetID:         b.BetID,
		ParticipantID: b.ParticipantID,
		StakeCents:    b.StakeCents,
		PayoutCents:   b.PayoutCents,
		Status:        b.Status,
		PlacedAt:      b.PlacedAt,
	}
	if b.AutoCashOut > 0 {
		v.AutoCashOut = b.AutoCashOut.Float64()
	}
	if b.CashOut != nil {
		f := b.CashOut.Float64()
		v.CashOut = &f
	}
	return v
}

// betViews returns bets sorted by placement time so snapshots are stable.
func (r *Round) betViews() []BetView {
	views := make([]BetView, 0, len(r.bets))
	for _, b := range r.bets {
		views = append(views, b.view())
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].PlacedAt.Before(views[j].PlacedAt)
	})
	return views
}

// snapshot must be called with r.mu held.
func (r *Round) snapshot() RoundSnapshot {
	s := RoundSnapshot{
		RoundID:        r.ID,
		Phase:          r.Phase,
		ServerSeedHash: r.ServerSeedHash,
		ClientSeed:     r.ClientSeed,
		CreatedAt:      r.CreatedAt,
		StartedAt:      r.StartedAt,
		CrashedAt:      r.CrashedAt,
		Bets:           r.betViews(),
	}
	if r.Phase == PhaseRunning {
		s.LiveMultiplier = r.lastLive.Float64()
	}
	if r.Phase == PhaseCrashed {
		s.ServerSeed = r.serverSeed
		s.CrashMultiplier = r.crashPoint.Float64()
	}
	return s
}

// result must be called with r.mu held and the round crashed.
func (r *Round) result() Result {
	return Result{
		RoundID:         r.ID,
		ServerSeed:      r.serverSeed,
		ServerSeedHash:  r.ServerSeedHash,
		ClientSeed:      r.ClientSeed,
		CrashMultiplier: r.crashPoint.Float64(),
		StartedAt:       r.StartedAt,
		CrashedAt:       r.CrashedAt,
		Bets:            r.betViews(),
	}
}
