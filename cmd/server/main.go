package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trivia-backend/internal/catalog"
	"trivia-backend/internal/config"
	"trivia-backend/internal/database"
	"trivia-backend/internal/handlers"
	"trivia-backend/internal/messaging"
	"trivia-backend/internal/middleware"
	"trivia-backend/internal/models"
	"trivia-backend/internal/repository"
	"trivia-backend/internal/router"
	"trivia-backend/internal/services"
	"trivia-backend/internal/session"
	"trivia-backend/internal/websocket"
	"trivia-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting Sports Trivia Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL, database.PoolOptions{MaxConns: int32(cfg.DBMaxConns)})
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, cfg.MigrationsDir); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	jobRepo := repository.NewJobRepo(pool)
	questionRepo := repository.NewQuestionRepo(pool)
	scoreRepo := repository.NewScoreRepo(pool)
	profileRepo := repository.NewProfileRepo(pool)
	guestProfiles := repository.NewGuestProfileStore(redisClients.Queue, cfg.GuestProfileTTL)
	leaderboardCache := repository.NewLeaderboardCache(redisClients.Queue)

	// ──── Step 5: Load Question Catalog ────
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	questionCatalog, err := catalog.Load(loadCtx, questionRepo)
	cancelLoad()
	if err != nil {
		log.Fatalf("✗ Question catalog failed to load: %v", err)
	}
	log.Printf("✓ Question catalog loaded (%d questions)", questionCatalog.Len())

	// ──── Step 6: Event Delivery ────
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.FrontendURL)
	notificationScheduler := services.NewNotificationScheduler(userRepo, profileRepo, emailService)

	consumerCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()

	var events services.EventPublisher
	if cfg.RabbitMQURL != "" {
		rabbit, err := messaging.NewRabbitMQClient(cfg.RabbitMQURL)
		if err != nil {
			log.Fatalf("✗ RabbitMQ connection failed: %v", err)
		}
		defer rabbit.Close()
		events = rabbit

		go func() {
			if err := rabbit.Consume(consumerCtx, models.EventAchievementUnlocked, notificationScheduler.HandleAchievementEvent); err != nil {
				log.Printf("achievement consumer stopped: %v", err)
			}
		}()
		log.Println("✓ RabbitMQ connected")
	} else {
		bus := services.NewLocalBus()
		bus.Subscribe(models.EventAchievementUnlocked, notificationScheduler.HandleAchievementEvent)
		events = bus
		log.Println("⚠ RABBITMQ_URL not set, delivering events in process")
	}

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	notifier := services.NewRedisNotifier(redisClients.Queue)
	authService := services.NewAuthService(userRepo, redisClients.Queue, jwtAuth, emailService, cfg.GoogleClientID)
	profileService := services.NewProfileService(profileRepo, guestProfiles, events, notifier)
	leaderboardService := services.NewLeaderboardService(scoreRepo, leaderboardCache, events, cfg.LeaderboardLimit)

	sessions := session.NewManager(session.Config{
		QuestionTime:  cfg.QuestionTimeLimit,
		FeedbackDelay: cfg.FeedbackDelay,
	}, cfg.SessionIdleTTL, session.DefaultCompletedTTL)
	sessions.Start()
	quizService := services.NewQuizService(questionCatalog, sessions, profileService, leaderboardService, notifier, cfg.QuizQuestionCount)

	// ──── Step 7: Question Generation (optional) ────
	jobService := services.NewJobService(jobRepo, services.NewRedisJobQueue(redisClients.Queue), cfg.GeminiAPIKey != "")
	var workerPool *worker.Pool
	if cfg.GeminiAPIKey != "" {
		model, closeModel, err := services.NewGeminiModel(context.Background(), cfg.GeminiAPIKey)
		if err != nil {
			log.Fatalf("✗ Gemini client initialization failed: %v", err)
		}
		defer closeModel()

		generator := services.NewQuestionGenerator(model, cfg.GeminiConcurrentReqs, questionCatalog, questionRepo, jobRepo, notifier)
		workerPool = worker.NewPool(redisClients.Queue, generator, jobRepo, notifier, cfg.WorkerCount)
		workerPool.Start()
		log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)
	} else {
		log.Println("⚠ GEMINI_API_KEY not set, question generation disabled")
	}

	notificationScheduler.Start()
	log.Println("✓ Notification scheduler started")

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService, cfg.FrontendURL)
	scoreHandler := handlers.NewScoreHandler(leaderboardService, profileService)
	sessionHandler := handlers.NewSessionHandler(quizService)
	profileHandler := handlers.NewProfileHandler(profileService)
	questionHandler := handlers.NewQuestionHandler(questionCatalog, jobService)
	userHandler := handlers.NewUserHandler(userRepo, profileService)

	// ──── Step 8: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth, cfg.AllowedOrigins)
	log.Println("✓ WebSocket hub started")

	// ──── Step 9: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		scoreHandler,
		sessionHandler,
		profileHandler,
		questionHandler,
		userHandler,
		wsHub,
		cfg.AllowedOrigins,
		func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				return err
			}
			return redisClients.Ping(ctx)
		},
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("✓ Sports Trivia Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	err = serveUntilSignal(server, sigChan,
		func() {
			if workerPool != nil {
				workerPool.Stop()
			}
			notificationScheduler.Stop()
			sessions.Stop()
		},
		// In-flight profile and leaderboard writes land before the pools close.
		quizService.Wait,
		scoreHandler.Wait,
		stopConsumers,
	)
	if err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
