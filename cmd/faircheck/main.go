// faircheck replays the fairness proof for a revealed round from the
// command line, the same check third parties run against the public data:
//
//	go run ./cmd/faircheck -seed <serverSeed> -hash <serverSeedHash> \
//	    -client <clientSeed> -round 42 -crash 2.47
package main

import (
	"flag"
	"fmt"
	"os"

	"crashengine/config"
	"crashengine/game"
)

func main() {
	seed := flag.String("seed", "", "revealed server seed")
	hash := flag.String("hash", "", "published server seed hash")
	client := flag.String("client", "", "client seed used for the round")
	round := flag.Int64("round", 0, "round id")
	crash := flag.Float64("crash", 0, "published crash multiplier, e.g. 2.47")
	edge := flag.Int64("edge-bp", config.HouseEdgeBP, "house edge in basis points")
	instant := flag.Int64("instant-bp", config.InstantCrashBP, "instant crash rate in basis points")
	maxCents := flag.Int64("max-cents", config.MaxCrashCents, "crash point cap in hundredths")
	flag.Parse()

	if *seed == "" || *hash == "" || *crash == 0 {
		flag.Usage()
		os.Exit(2)
	}

	result := game.VerifyRound(game.RevealedRound{
		RoundID:         *round,
		ServerSeed:      *seed,
		ServerSeedHash:  *hash,
		ClientSeed:      *client,
		CrashMultiplier: *crash,
	}, game.DeriveParams{
		HouseEdgeBP:    *edge,
		InstantCrashBP: *instant,
		MaxCrash:       game.Multiplier(*maxCents),
	})

	if result.Fair {
		fmt.Printf("✅ FAIR - round %d crash %.2fx checks out\n", *round, *crash)
		return
	}

	fmt.Printf("🚨 NOT FAIR - %s\n", result.Reason)

	derived, err := game.DeriveCrashPoint(*seed, *client, *round, game.DeriveParams{
		HouseEdgeBP:    *edge,
		InstantCrashBP: *instant,
		MaxCrash:       game.Multiplier(*maxCents),
	})
	if err == nil {
		fmt.Printf("   derived crash point from the seed: %s\n", derived)
	}
	os.Exit(1)
}
