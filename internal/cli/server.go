package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"chara-quiz-service/internal/app"
	"chara-quiz-service/internal/config"
	"chara-quiz-service/internal/domain"
	"chara-quiz-service/internal/infra/memory"
	pgstore "chara-quiz-service/internal/infra/postgres"
	redisstore "chara-quiz-service/internal/infra/redis"
	transport "chara-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pgPool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pgPool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pgPool.Close()
	}

	// dataset precedence: JSON file, then Postgres, then the built-in sample
	var loader app.CharacterLoader = memory.NewStaticCharacterLoader(sampleCharacters())
	switch {
	case cfg.Quiz.Dataset != "":
		loader = memory.NewFileCharacterLoader(cfg.Quiz.Dataset)
	case pgPool != nil:
		loader = pgstore.NewCharacterLoader(pgPool)
	}

	builder := app.NewPoolBuilder(loader, nil)
	poolTTL := config.TTLDuration(cfg.Quiz.PoolTTL, 10*time.Minute)
	var poolRepo app.PoolRepository
	if redisClient != nil {
		poolRepo = redisstore.NewPoolRepository(redisClient, builder, poolTTL)
	} else {
		poolRepo = memory.NewPoolRepository(builder, poolTTL)
	}

	var scoreStore app.ScoreStore
	if redisClient != nil {
		scoreStore = redisstore.NewScoreStore(redisClient)
	} else {
		scoreStore = memory.NewScoreStore()
	}
	var remote app.RemoteScoreStore
	if pgPool != nil {
		remote = pgstore.NewScoreStore(pgPool)
	}

	board := app.NewLeaderboardManager(scoreStore, remote)
	poolService := app.NewPoolService(poolRepo, nil)
	wsHandler := transport.NewWSHandler(poolService, board, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting chara quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleCharacters is a minimal built-in dataset; point quiz.dataset at a JSON
// file or configure Postgres for the real one.
func sampleCharacters() []domain.Character {
	return []domain.Character{
		{
			ID:        "sample-1",
			Name:      "Momo",
			Owner1:    "Yui",
			Hobby:     "napping",
			Sweets:    "caramel",
			Profile:   "Dreams of {[caramel]} all day.",
			ImageQuiz: "momo.png",
			ImageInfo: "momo_info.png",
		},
		{
			ID:        "sample-2",
			Name:      "Taro",
			Owner1:    "Ken",
			Skill:     "balancing",
			ImageQuiz: "taro.png",
		},
		{
			ID:        "sample-3",
			Name:      "Hana",
			Owner1:    "Yui",
			Owner2:    "Ken",
			Hobby:     "gardening",
			Item:      "red ribbon",
			ImageQuiz: "hana.png",
		},
	}
}
