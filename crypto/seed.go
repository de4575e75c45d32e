package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
)

// SeedBytes is the raw entropy drawn per round (256 bits).
const SeedBytes = 32

var (
	ErrEmptySeed  = errors.New("server seed is empty")
	ErrSeedReused = errors.New("server seed already committed")
)

// GenerateServerSeed draws SeedBytes of entropy from the OS CSPRNG and
// returns it hex-encoded. The hex string is the server seed: it is hashed
// as-is for the commitment and used as-is as the HMAC key, so verifiers
// never need to hex-decode anything.
func GenerateServerSeed() (string, error) {
	buf := make([]byte, SeedBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read entropy: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashSeed returns the hex SHA-256 commitment of a server seed.
func HashSeed(seed string) string {
	h := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(h[:])
}

// VerifySeed reports whether hash is the commitment of seed.
func VerifySeed(seed, hash string) bool {
	want := HashSeed(seed)
	return subtle.ConstantTimeCompare([]byte(want), []byte(hash)) == 1
}

// registryRetention bounds how many recent commitments the registry keeps.
// Seeds carry 256 bits of fresh entropy, so a repeat outside this window is
// not a practical concern; the window exists to catch generation bugs and
// deliberate replays without growing forever.
const registryRetention = 4096

// SeedRegistry tracks recently committed seeds. Reusing a seed across
// rounds would let an outcome be predicted from an earlier reveal, so
// Commit rejects duplicates inside the retention window.
type SeedRegistry struct {
	mu    sync.Mutex
	used  map[string]struct{}
	order []string
}

func NewSeedRegistry() *SeedRegistry {
	return &SeedRegistry{used: make(map[string]struct{})}
}

// Commit records the seed and returns its commitment hash. Fails with
// ErrEmptySeed on an empty seed and ErrSeedReused if the seed was
// committed before.
func (r *SeedRegistry) Commit(seed string) (string, error) {
	if seed == "" {
		return "", ErrEmptySeed
	}

	hash := HashSeed(seed)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.used[hash]; ok {
		return "", fmt.Errorf("%w: %s", ErrSeedReused, hash)
	}
	r.used[hash] = struct{}{}
	r.order = append(r.order, hash)
	for len(r.order) > registryRetention {
		delete(r.used, r.order[0])
		r.order = r.order[1:]
	}

	return hash, nil
}
