package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sweepifyAPI/handlers"
	"sweepifyAPI/internal/analysis"
	"sweepifyAPI/internal/blob"
	"sweepifyAPI/internal/config"
	"sweepifyAPI/internal/notification"
	"sweepifyAPI/middleware"
	"sweepifyAPI/services"

	_ "net/http/pprof"
)

var (
	cfg                 *config.Config
	dbPool              *pgxpool.Pool
	submissionService   *services.SubmissionService
	eventService        *services.EventService
	userService         *services.UserService
	achievementService  *services.AchievementService
	rewardService       *services.RewardService
	notificationService *services.NotificationService
	photoStorage        *blob.Storage
	analyzer            *analysis.Client
)

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	clerk.SetKey(cfg.Clerk.SecretKey)
	log.Println("Clerk initialized successfully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to database")

	notificationService = services.NewNotificationService(dbPool)
	userService = services.NewUserService(dbPool)
	eventService = services.NewEventService(dbPool)
	rewardService = services.NewRewardService(dbPool)
	achievementService = services.NewAchievementService(dbPool, notificationService)
	submissionService = services.NewSubmissionService(dbPool, cfg.Verification.Quorum, notificationService)
	submissionService.SetAchievementSync(achievementService)

	fcmService, err := notification.NewFCMService(cfg.Firebase.KeyPath)
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		notificationService.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	if cfg.Firebase.StorageBucket != "" {
		photoStorage, err = blob.NewStorage(cfg.Firebase.KeyPath, cfg.Firebase.StorageBucket)
		if err != nil {
			log.Printf("Warning: Could not initialize photo storage: %v", err)
		} else {
			log.Println("Photo storage initialized successfully")
		}
	} else {
		log.Println("FIREBASE_STORAGE_BUCKET not set, photo uploads disabled")
	}

	if cfg.Analysis.BaseURL != "" {
		analyzer = analysis.NewClient(cfg.Analysis.BaseURL)
		log.Println("Trash detection analysis enabled")
	}

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	submissionHandler := handlers.NewSubmissionHandler(submissionService, photoStorage, analyzer)
	eventHandler := handlers.NewEventHandler(eventService)
	userHandler := handlers.NewUserHandler(userService)
	achievementHandler := handlers.NewAchievementHandler(achievementService)
	rewardHandler := handlers.NewRewardHandler(rewardService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	webhookHandler := handlers.NewWebhookHandler(userService, cfg.Clerk.WebhookSecret)

	r := mux.NewRouter()

	rateLimiter := middleware.NewRateLimiter(5, 30)
	go rateLimiter.CleanupVisitors()

	r.Use(rateLimiter.Middleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := dbPool.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "sweepify-api"}`))
	}).Methods("GET")

	r.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Submission browsing works with or without a session; everything
	// that writes or is user-scoped requires auth.
	public := api.PathPrefix("").Subrouter()
	public.Use(middleware.OptionalAuthMiddleware)
	public.HandleFunc("/submissions", submissionHandler.List).Methods("GET")
	public.HandleFunc("/submissions/{id}", submissionHandler.Get).Methods("GET")
	public.HandleFunc("/submissions/{id}/votes", submissionHandler.Votes).Methods("GET")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/submissions", submissionHandler.Report).Methods("POST")
	protected.HandleFunc("/submissions/{id}/complete", submissionHandler.Complete).Methods("POST")
	protected.HandleFunc("/submissions/{id}/verify", submissionHandler.Verify).Methods("POST")
	protected.HandleFunc("/uploads", submissionHandler.Upload).Methods("POST")

	protected.HandleFunc("/events", eventHandler.Create).Methods("POST")
	protected.HandleFunc("/events", eventHandler.List).Methods("GET")
	protected.HandleFunc("/events/{id}", eventHandler.Get).Methods("GET")
	protected.HandleFunc("/events/{id}/join", eventHandler.Join).Methods("POST")
	protected.HandleFunc("/events/{id}/leave", eventHandler.Leave).Methods("POST")
	protected.HandleFunc("/events/{id}/cancel", eventHandler.Cancel).Methods("POST")
	protected.HandleFunc("/events/{id}/invite", eventHandler.Invite).Methods("GET")

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user/update-profile", userHandler.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/user/delete-account", userHandler.DeleteAccount).Methods("DELETE")
	protected.HandleFunc("/user/stats", userHandler.GetStats).Methods("GET")
	protected.HandleFunc("/user/activity", userHandler.GetActivity).Methods("GET")
	protected.HandleFunc("/user/leaderboard", userHandler.GetLeaderboard).Methods("GET")
	protected.HandleFunc("/user/achievements", achievementHandler.List).Methods("GET")

	protected.HandleFunc("/store", rewardHandler.List).Methods("GET")
	protected.HandleFunc("/store/redeem/{id}", rewardHandler.Redeem).Methods("POST")

	protected.HandleFunc("/notifications", notificationHandler.List).Methods("GET")
	protected.HandleFunc("/notifications/unread-count", notificationHandler.UnreadCount).Methods("GET")
	protected.HandleFunc("/notifications/{id}/read", notificationHandler.MarkAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	server := http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
