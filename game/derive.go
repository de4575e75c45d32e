package game

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math/big"
	"strconv"
)

// The derivation reads the first 52 bits of
// HMAC-SHA256(key=serverSeed, msg=clientSeed:roundID) as a uniform value
// u = h/2^52 and maps it through the house-edge transform
//
//	crash = floor(100 * (1 - edge) / (1 - u)) / 100
//
// with the lowest u values reserved for instant 1.00x crashes. Everything
// is integer arithmetic (big.Int for the one product that can exceed 64
// bits), so the same inputs produce the same crash point on every platform.
const hashBits = 52

const (
	DefaultHouseEdgeBP    int64 = 100 // 1% house edge
	DefaultInstantCrashBP int64 = 200 // 2% of rounds crash at 1.00x

	// DefaultMaxCrash caps runaway tail outcomes at 1000.00x.
	DefaultMaxCrash Multiplier = 100000
)

// DeriveParams are the house policy knobs, in basis points.
type DeriveParams struct {
	HouseEdgeBP    int64
	InstantCrashBP int64
	MaxCrash       Multiplier // 0 means uncapped
}

func DefaultDeriveParams() DeriveParams {
	return DeriveParams{
		HouseEdgeBP:    DefaultHouseEdgeBP,
		InstantCrashBP: DefaultInstantCrashBP,
		MaxCrash:       DefaultMaxCrash,
	}
}

// DeriveCrashPoint deterministically maps (serverSeed, clientSeed, roundID)
// to a crash multiplier. No hidden state, no clock: calling it twice with
// the same inputs always yields the same result, which is what makes the
// published outcome verifiable after the seed reveal.
func DeriveCrashPoint(serverSeed, clientSeed string, roundID int64, p DeriveParams) (Multiplier, error) {
	if serverSeed == "" {
		return 0, ErrEmptyServerSeed
	}
	if clientSeed == "" {
		return 0, ErrEmptyClientSeed
	}
	if roundID < 0 {
		return 0, ErrNegativeRoundID
	}

	mac := hmac.New(sha256.New, []byte(serverSeed))
	mac.Write([]byte(clientSeed))
	mac.Write([]byte(":"))
	mac.Write([]byte(strconv.FormatInt(roundID, 10)))
	digest := mac.Sum(nil)

	// First 52 bits of the digest: h in [0, 2^52).
	h := binary.BigEndian.Uint64(digest[:8]) >> (64 - hashBits)

	one := new(big.Int).Lsh(big.NewInt(1), hashBits) // 2^52

	// Instant-crash band: u < instantBP/10000, i.e. h*10000 < instantBP*2^52.
	if p.InstantCrashBP > 0 {
		lhs := new(big.Int).Mul(new(big.Int).SetUint64(h), big.NewInt(10000))
		rhs := new(big.Int).Mul(big.NewInt(p.InstantCrashBP), one)
		if lhs.Cmp(rhs) < 0 {
			return MinMultiplier, nil
		}
	}

	// cents = floor((10000 - edgeBP) * 2^52 / (100 * (2^52 - h)))
	num := new(big.Int).Mul(big.NewInt(10000-p.HouseEdgeBP), one)
	den := new(big.Int).Sub(one, new(big.Int).SetUint64(h))
	den.Mul(den, big.NewInt(100))

	cents := new(big.Int).Quo(num, den)

	crash := Multiplier(cents.Int64())
	if crash < MinMultiplier {
		crash = MinMultiplier
	}
	if p.MaxCrash > 0 && crash > p.MaxCrash {
		crash = p.MaxCrash
	}

	return crash, nil
}
