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

	"quiz-runner/internal/app"
	"quiz-runner/internal/auth"
	"quiz-runner/internal/config"
	"quiz-runner/internal/domain"
	amqppub "quiz-runner/internal/infra/amqp"
	"quiz-runner/internal/infra/memory"
	pgrecorder "quiz-runner/internal/infra/postgres"
	redisstore "quiz-runner/internal/infra/redis"
	transport "quiz-runner/internal/transport/http"
	"quiz-runner/internal/trig"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz backend (REST + websocket)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *configPath)
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg, *port)
		},
	}
}

func runServer(ctx context.Context, cfg config.Config, portFlag string) error {
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
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)
	answerTTL := config.TTLDuration(cfg.Quiz.AnswerTTL, 30*time.Minute)

	var answers app.AnswerStore
	if redisClient != nil {
		answers = redisstore.NewAnswerStore(redisClient, answerTTL)
	} else {
		answers = memory.NewAnswerStore(answerTTL)
	}

	sinks := []app.ResultSink{}
	if redisClient != nil {
		sinks = append(sinks, redisstore.NewResultReporter(redisClient, redisTTL))
	}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		sinks = append(sinks, pgrecorder.NewResultRecorder(pool))
	}
	if cfg.AMQP.URL != "" {
		publisher, err := amqppub.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return err
		}
		defer publisher.Close()
		sinks = append(sinks, publisher)
	}
	reporter := app.MultiReporter{
		app.ReporterFunc(logResult),
		app.SinkReporter(config.TTLDuration(cfg.Quiz.ReportTimeout, 5*time.Second), sinks...),
	}

	authority := auth.NewAuthority(cfg.Auth.Secret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
	service := app.NewQuestionService(trig.NewGenerator(), answers, authority)
	wsHandler := transport.NewWSHandler(service, authority, reporter)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.NewRouter(service, authority, wsHandler),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("starting quiz runner on :%s (%d result sinks)", finalPort, len(sinks))
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

func logResult(res domain.Result) {
	log.Printf("session %s (%s) finished: %d/%d correct, %ds", res.SessionID, res.Mode, res.CorrectAnswers, res.TotalQuestions, res.TimeSpent)
}
