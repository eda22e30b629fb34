package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"Curbside/internal/api/middleware"
	"Curbside/internal/api/routes"
	"Curbside/internal/auth"
	"Curbside/internal/config"
	"Curbside/internal/core/captcha"
	"Curbside/internal/core/mail"
	"Curbside/internal/core/media"
	"Curbside/internal/core/posts"
	"Curbside/internal/core/users"
	"Curbside/internal/db/memory"
	"Curbside/internal/db/migrations"
	postgresRepo "Curbside/internal/db/postgres"
	"Curbside/internal/jobs"
	memoryObjects "Curbside/internal/storage/memory"
	"Curbside/internal/storage/s3"
	"Curbside/internal/telemetry"
)

// objectsPath serves in-memory blobs when no bucket is configured
const objectsPath = "/objects"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	shutdownTracing, err := telemetry.Init(ctx, cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(c); err != nil {
			log.Printf("Tracing shutdown: %v", err)
		}
	}()

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Printf("Close failed: %v", err)
			}
		}
	}()

	// Store
	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	if db != nil {
		closers = append(closers, db)
	}

	// Media blobs
	objects, devObjects, err := openObjects(ctx, cfg)
	if err != nil {
		return err
	}

	// Mail transport
	mailer, err := newMailer(cfg)
	if err != nil {
		return err
	}
	if c, ok := mailer.(io.Closer); ok {
		closers = append(closers, c)
	}

	// Services
	userService := users.NewUserService(store.Users())
	issuer, err := auth.NewCredentialIssuer([]byte(cfg.CredentialSecret), cfg.CredentialTTL, userService)
	if err != nil {
		return fmt.Errorf("failed to create credential issuer: %w", err)
	}
	mediaService := media.NewMediaService(store.Media(), objects, cfg.PresignTTL, cfg.MaxUploadSize)
	if devObjects != nil {
		devObjects.ServeOnly(mediaService)
	}
	postService := posts.NewPostService(
		store,
		newCaptcha(cfg),
		userService,
		mailer,
		issuer,
		mediaService,
		posts.FirstPostOrFlaggedPolicy{},
		posts.Config{
			CaptchaAction:    cfg.CaptchaAction,
			CaptchaThreshold: cfg.CaptchaScore,
			VerifyURLBase:    cfg.VerifyURLBase(),
			MailTimeout:      cfg.MailTimeout,
		},
	)

	// Rate limiting on anonymous writes
	limiter, err := newLimiter(ctx, cfg)
	if err != nil {
		return err
	}
	if c, ok := limiter.(io.Closer); ok {
		closers = append(closers, c)
	}

	// Background jobs
	scheduler := jobs.NewScheduler(5 * time.Minute)
	if err := scheduler.AddOrphanSweep(cfg.OrphanSweepSchedule, mediaService, cfg.OrphanMediaTTL); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	authMiddleware := middleware.NewOwnerAuthMiddleware(issuer)
	routes.RegisterPostRoutes(r, postService, authMiddleware, limiter)
	routes.RegisterMediaRoutes(r, mediaService, cfg.MaxUploadSize, limiter)
	if devObjects != nil {
		r.Handle(objectsPath+"/*", devObjects)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(r, "curbside"),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Curbside starting on port %s (store=%s)", cfg.Port, cfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore returns the configured store. db is nil for the memory store.
func openStore(cfg *config.Config) (posts.Store, *sql.DB, error) {
	if cfg.Store == config.StoreMemory {
		log.Println("Using in-memory store; data is lost on restart")
		return memory.NewStore(), nil, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("Connected to database")

	if err := migrations.Up(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Println("Migrations completed successfully")

	return postgresRepo.NewStore(db), db, nil
}

// openObjects returns the S3 bucket, or an in-memory store that the router
// must serve when no endpoint is configured. The in-memory store serves
// nothing until it is given a gate.
func openObjects(ctx context.Context, cfg *config.Config) (media.ObjectStore, *memoryObjects.ObjectStore, error) {
	if cfg.S3.Endpoint == "" {
		objects, err := memoryObjects.NewObjectStore(cfg.PublicBaseURL + objectsPath)
		if err != nil {
			return nil, nil, err
		}
		log.Println("S3_ENDPOINT not set, keeping media in memory")
		return objects, objects, nil
	}

	storage, err := s3.New(s3.Config(cfg.S3))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create s3 client: %w", err)
	}
	if err := storage.EnsureBucket(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to prepare bucket %s: %w", cfg.S3.Bucket, err)
	}
	return storage, nil, nil
}

func newMailer(cfg *config.Config) (mail.Sender, error) {
	if len(cfg.KafkaBrokers) == 0 {
		log.Println("KAFKA_BROKERS not set, verification mail is only logged")
		return mail.LogSender{ShowLinks: cfg.Environment == "development"}, nil
	}
	sender, err := mail.NewKafkaSender(cfg.KafkaBrokers, cfg.MailTopic)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail sender: %w", err)
	}
	return sender, nil
}

func newCaptcha(cfg *config.Config) captcha.Verifier {
	if cfg.CaptchaSecret == "" {
		log.Println("CAPTCHA_SECRET not set, accepting every submission proof")
		return captcha.AllowAll{Action: cfg.CaptchaAction}
	}
	return captcha.NewRecaptchaVerifier(cfg.CaptchaSecret, "", 5*time.Second)
}

// newLimiter shares counters through redis when configured
func newLimiter(ctx context.Context, cfg *config.Config) (middleware.Limiter, error) {
	if cfg.RedisAddr == "" {
		limiter := middleware.NewRateLimiter(cfg.CreateRateLimit, cfg.CreateRateWindow)
		go limiter.Cleanup(ctx)
		return limiter, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
	}
	return &closingLimiter{
		RedisLimiter: middleware.NewRedisLimiter(client, cfg.CreateRateLimit, cfg.CreateRateWindow),
		client:       client,
	}, nil
}

type closingLimiter struct {
	*middleware.RedisLimiter
	client *redis.Client
}

func (l *closingLimiter) Close() error { return l.client.Close() }
