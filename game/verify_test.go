package game

import (
	"testing"

	"crashengine/crypto"
)

func fairVector() RevealedRound {
	// Matches the derivation vectors: seed "aa"x32, client "abc", round 1.
	return RevealedRound{
		RoundID:         1,
		ServerSeed:      testSeedA,
		ServerSeedHash:  "ffe054fe7ae0cb6dc65c3af9b61d5209f439851db43d0ba5997337df154668eb",
		ClientSeed:      "abc",
		CrashMultiplier: 1.03,
	}
}

func TestVerifyRound(t *testing.T) {
	params := DefaultDeriveParams()

	t.Run("Fair", func(t *testing.T) {
		res := VerifyRound(fairVector(), params)
		if !res.Fair {
			t.Fatalf("known-good round flagged unfair: %s", res.Reason)
		}
		if res.Reason != "" {
			t.Errorf("fair result carries a reason: %q", res.Reason)
		}
	})

	t.Run("TamperedSeed", func(t *testing.T) {
		r := fairVector()
		r.ServerSeed = "bb" + r.ServerSeed[2:]
		res := VerifyRound(r, params)
		if res.Fair || res.Reason != ReasonHashMismatch {
			t.Errorf("expected %s, got fair=%v reason=%q", ReasonHashMismatch, res.Fair, res.Reason)
		}
	})

	t.Run("TamperedHash", func(t *testing.T) {
		r := fairVector()
		r.ServerSeedHash = "00" + r.ServerSeedHash[2:]
		res := VerifyRound(r, params)
		if res.Fair || res.Reason != ReasonHashMismatch {
			t.Errorf("expected %s, got fair=%v reason=%q", ReasonHashMismatch, res.Fair, res.Reason)
		}
	})

	t.Run("TamperedMultiplier", func(t *testing.T) {
		r := fairVector()
		r.CrashMultiplier = 12.34
		res := VerifyRound(r, params)
		if res.Fair || res.Reason != ReasonMultiplierMismatch {
			t.Errorf("expected %s, got fair=%v reason=%q", ReasonMultiplierMismatch, res.Fair, res.Reason)
		}
	})

	t.Run("TamperedClientSeed", func(t *testing.T) {
		r := fairVector()
		r.ClientSeed = "xyz"
		res := VerifyRound(r, params)
		if res.Fair || res.Reason != ReasonMultiplierMismatch {
			t.Errorf("expected %s, got fair=%v reason=%q", ReasonMultiplierMismatch, res.Fair, res.Reason)
		}
	})

	t.Run("TamperedRoundID", func(t *testing.T) {
		r := fairVector()
		r.RoundID = 2
		res := VerifyRound(r, params)
		if res.Fair || res.Reason != ReasonMultiplierMismatch {
			t.Errorf("expected %s, got fair=%v reason=%q", ReasonMultiplierMismatch, res.Fair, res.Reason)
		}
	})

	// A seed/hash tamper pair that is internally consistent still fails on
	// the multiplier, since the commitment no longer backs the outcome used.
	t.Run("ConsistentButWrongSeed", func(t *testing.T) {
		r := fairVector()
		r.ServerSeed = testSeedB
		r.ServerSeedHash = crypto.HashSeed(testSeedB)
		res := VerifyRound(r, params)
		if res.Fair || res.Reason != ReasonMultiplierMismatch {
			t.Errorf("expected %s for a swapped seed, got fair=%v reason=%q",
				ReasonMultiplierMismatch, res.Fair, res.Reason)
		}
	})

	t.Run("WrongHouseParams", func(t *testing.T) {
		p := params
		p.HouseEdgeBP = 0
		res := VerifyRound(fairVector(), p)
		if res.Fair || res.Reason != ReasonMultiplierMismatch {
			t.Errorf("expected %s under different house params, got fair=%v reason=%q",
				ReasonMultiplierMismatch, res.Fair, res.Reason)
		}
	})

	t.Run("MalformedInput", func(t *testing.T) {
		res := VerifyRound(RevealedRound{}, params)
		if res.Fair {
			t.Error("zero-value round accepted")
		}
	})
}

// Every round the engine finishes must verify with the engine's own params,
// and fail once any published field is altered.
func TestVerifyEngineRounds(t *testing.T) {
	e := NewEngine(testPolicy())

	for i := 0; i < 20; i++ {
		info, err := e.CreateRound("")
		if err != nil {
			t.Fatalf("CreateRound failed: %v", err)
		}
		if _, err := e.StartRound(info.RoundID, false); err != nil {
			t.Fatalf("StartRound failed: %v", err)
		}
		if _, err := e.ReportElapsed(info.RoundID, 10000000); err != nil {
			t.Fatalf("ReportElapsed failed: %v", err)
		}

		revealed, err := e.Revealed(info.RoundID)
		if err != nil {
			t.Fatalf("Revealed failed: %v", err)
		}

		if res := VerifyRound(revealed, e.DeriveParams()); !res.Fair {
			t.Errorf("round %d flagged unfair: %s", info.RoundID, res.Reason)
		}

		tampered := revealed
		tampered.CrashMultiplier += 0.5
		if res := VerifyRound(tampered, e.DeriveParams()); res.Fair {
			t.Errorf("round %d accepted a tampered multiplier", info.RoundID)
		}
	}
}
