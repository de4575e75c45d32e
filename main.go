package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"crashengine/api"
	"crashengine/config"
	"crashengine/db"
	"crashengine/game"
	"crashengine/scheduler"
	"crashengine/service"
	"crashengine/wallet"
	"crashengine/ws"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables")
	} else {
		log.Println("✅ Loaded environment variables from .env")
	}

	// Initialize database connections
	if err := db.InitPostgres(); err != nil {
		log.Printf("⚠️  Warning: PostgreSQL initialization failed: %v", err)
		log.Println("   Round archive and leaderboard will be disabled")
	}
	defer db.ClosePostgres()

	if err := db.InitRedis(); err != nil {
		log.Printf("⚠️  Warning: Redis initialization failed: %v", err)
		log.Println("   Live bet mirrors will be disabled")
	}
	defer db.CloseRedis()

	// House policy, overridable per deployment
	policy := game.Policy{
		Derive: game.DeriveParams{
			HouseEdgeBP:    int64(config.EnvInt("HOUSE_EDGE_BP", config.HouseEdgeBP)),
			InstantCrashBP: int64(config.EnvInt("INSTANT_CRASH_BP", config.InstantCrashBP)),
			MaxCrash:       game.Multiplier(config.EnvInt("MAX_CRASH_CENTS", config.MaxCrashCents)),
		},
		DefaultClientSeed: config.EnvString("DEFAULT_CLIENT_SEED", config.DefaultClientSeed),
		MinBettingWindow:  config.EnvDuration("MIN_BETTING_WINDOW", config.MinBettingWindow),
		HistorySize:       config.EnvInt("MAX_ROUND_HISTORY", config.MaxRoundHistory),
	}

	engine := game.NewEngine(policy)
	ledger := wallet.NewMemory(int64(config.EnvInt("INITIAL_BALANCE_CENTS", 100000)))
	rounds := service.NewRounds(engine, ledger)

	ws.StartHub()
	api.Init(rounds)

	// Round scheduler; disable to drive rounds through the API instead
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.EnvString("SCHEDULER", "on") != "off" {
		loop := scheduler.New(rounds, scheduler.Config{
			BettingWindow:   config.EnvDuration("BETTING_WINDOW", config.MinBettingWindow),
			TickInterval:    config.EnvDuration("TICK_INTERVAL", config.TickInterval),
			InterRoundDelay: config.EnvDuration("INTER_ROUND_DELAY", config.InterRoundDelay),
			CurveRate:       config.CurveRate,
		})
		go loop.Run(ctx)
	} else {
		log.Println("⏸️  Scheduler disabled, rounds are API-driven")
	}

	// WebSocket endpoint
	http.HandleFunc("/ws", ws.HandleWS)

	// API endpoints
	http.HandleFunc("/api/round/create", api.HandleCreateRound)
	http.HandleFunc("/api/round/bet", api.HandlePlaceBet)
	http.HandleFunc("/api/round/seed", api.HandleSetClientSeed)
	http.HandleFunc("/api/round/start", api.HandleStartRound)
	http.HandleFunc("/api/round/elapsed", api.HandleReportElapsed)
	http.HandleFunc("/api/round/cashout", api.HandleCashOut)
	http.HandleFunc("/api/round/abort", api.HandleAbortRound)
	http.HandleFunc("/api/round/", api.HandleGetRound) // trailing slash for :roundId
	http.HandleFunc("/api/bets/", api.HandleGetActiveBets)
	http.HandleFunc("/api/verify", api.HandleVerifyRound)
	http.HandleFunc("/api/history", api.HandleGetHistory)
	http.HandleFunc("/api/history/", api.HandleGetArchivedRound)
	http.HandleFunc("/api/leaderboard", api.HandleGetLeaderboard)
	http.HandleFunc("/api/balance", api.HandleGetBalance)
	http.HandleFunc("/api/health", api.HandleHealthCheck)

	addr := config.EnvString("SERVER_HOST", config.ServerHost) + ":" + config.EnvString("SERVER_PORT", config.ServerPort)
	log.Printf("🚀 Server starting on %s", addr)
	log.Println("")
	log.Println("📡 WebSocket Endpoint:")
	log.Println("   ws://localhost:8080/ws - round events (created/started/tick/cashout/crashed)")
	log.Println("")
	log.Println("🔌 API Endpoints:")
	log.Println("   POST /api/round/create - open a round, returns commitment")
	log.Println("   POST /api/round/bet - place a bet")
	log.Println("   POST /api/round/seed - set client seed")
	log.Println("   POST /api/round/start - lock betting, freeze crash point")
	log.Println("   POST /api/round/elapsed - report live multiplier")
	log.Println("   POST /api/round/cashout - cash out")
	log.Println("   POST /api/round/abort - void a betting round")
	log.Println("   GET  /api/round/:roundId - round snapshot")
	log.Println("   POST /api/verify - replay the fairness proof")
	log.Println("   GET  /api/history - recent crashed rounds")
	log.Println("   GET  /api/leaderboard - participant PnL leaderboard")
	log.Println("   GET  /api/health - health check (Redis + PostgreSQL)")
	log.Println("")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal("❌ Server error:", err)
	}
}
