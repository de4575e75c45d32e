package game

import "crashengine/crypto"

// Mismatch reasons reported by VerifyRound.
const (
	ReasonHashMismatch       = "hash_mismatch"
	ReasonMultiplierMismatch = "multiplier_mismatch"
)

// RevealedRound is the public fairness tuple published after a crash.
type RevealedRound struct {
	RoundID         int64   `json:"roundId"`
	ServerSeed      string  `json:"serverSeed"`
	ServerSeedHash  string  `json:"serverSeedHash"`
	ClientSeed      string  `json:"clientSeed"`
	CrashMultiplier float64 `json:"crashMultiplier"`
}

// VerifyResult reports whether a revealed round checks out and, if not, why.
type VerifyResult struct {
	Fair   bool   `json:"fair"`
	Reason string `json:"reason,omitempty"`
}

// VerifyRound replays the fairness proof for a revealed round: the seed must
// hash to the published commitment, and the derivation must reproduce the
// published crash multiplier. It runs on untrusted public data and never
// returns an error; malformed input simply fails one of the two checks.
func VerifyRound(r RevealedRound, p DeriveParams) VerifyResult {
	if !crypto.VerifySeed(r.ServerSeed, r.ServerSeedHash) {
		return VerifyResult{Fair: false, Reason: ReasonHashMismatch}
	}

	derived, err := DeriveCrashPoint(r.ServerSeed, r.ClientSeed, r.RoundID, p)
	if err != nil || derived != MultiplierFromFloat(r.CrashMultiplier) {
		return VerifyResult{Fair: false, Reason: ReasonMultiplierMismatch}
	}

	return VerifyResult{Fair: true}
}
