package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/rcopley/faved/api"
	"github.com/rcopley/faved/datastore"
	"github.com/rcopley/faved/delivery"
	"github.com/rcopley/faved/digest"
	"github.com/rcopley/faved/ingestion"
	rh "github.com/rcopley/faved/route-handlers"
	"github.com/rcopley/faved/session"
	"github.com/rcopley/faved/summarize"
	"github.com/rcopley/faved/twitter"
)

const (
	defaultPort        = "8080"
	defaultDatabaseURL = "user=postgres password=password dbname=faved host=localhost port=5432 sslmode=disable"
	defaultBaseURL     = "http://localhost:8080"
	defaultDigestTime  = "12:00"
	defaultFromEmail   = "digest@faved.local"
	defaultFromName    = "faved"
	defaultSMTPPort    = 587
	dbPingTimeout      = 5 * time.Second
	shutdownTimeout    = 15 * time.Second
	dbMaxOpenConns     = 25
	dbMaxIdleConns     = 25
	dbConnMaxLifetime  = 5 * time.Minute
)

type config struct {
	port           string
	databaseURL    string
	baseURL        string
	sessionSecret  []byte
	consumerKey    string
	consumerSecret string
	summarizerURL  string
	summarizerKey  string
	digestTime     string
	emailProvider  string
	sendGridAPIKey string
	fromEmail      string
	fromName       string
	smtpHost       string
	smtpPort       int
	smtpUsername   string
	smtpPassword   string
}

func main() {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	cfg := loadConfig()

	db, err := setupDatabase(cfg.databaseURL)
	if err != nil {
		log.Fatalf("Database setup failed: %v", err)
	}
	defer db.Close()

	accountRepo := datastore.NewAccountRepository(db)
	bookmarkRepo := datastore.NewBookmarkRepository(db)

	providerClient := twitter.NewClient(cfg.consumerKey, cfg.consumerSecret, cfg.baseURL+"/callback")
	summarizer := summarize.NewHTTPSummarizer(cfg.summarizerURL, cfg.summarizerKey)
	ingestor := ingestion.NewIngestor(providerClient, summarizer, bookmarkRepo)

	secureCookies := strings.HasPrefix(cfg.baseURL, "https://")
	sessions := session.NewManager(cfg.sessionSecret, secureCookies)

	emailProvider := buildEmailProvider(cfg)
	digestService := digest.NewService(accountRepo, bookmarkRepo, emailProvider)

	authHandler := rh.NewAuthHandler(providerClient, accountRepo, sessions)
	bookmarksHandler := rh.NewBookmarksHandler(accountRepo, bookmarkRepo, ingestor, sessions)

	router := api.SetupRoutes(authHandler, bookmarksHandler, digestService)

	digestCron, err := startDigestCron(cfg.digestTime, digestService)
	if err != nil {
		log.Fatalf("Digest schedule setup failed: %v", err)
	}
	defer digestCron.Stop()

	startServer(cfg.port, router)
}

func loadConfig() config {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	dbURL := os.Getenv("DB_CONNECTION_STRING")
	if dbURL == "" {
		dbURL = defaultDatabaseURL
		log.Println("WARNING: DB_CONNECTION_STRING not set, using default local connection string.")
	}

	baseURL := strings.TrimSuffix(os.Getenv("BASE_URL"), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
		log.Println("WARNING: BASE_URL not set; OAuth callbacks will use " + defaultBaseURL)
	}

	sessionSecret := []byte(os.Getenv("SESSION_SECRET"))
	if len(sessionSecret) == 0 {
		sessionSecret = randomSecret()
		log.Println("WARNING: SESSION_SECRET not set; using a random per-process key. Sessions will not survive restarts.")
	}

	consumerKey := os.Getenv("TWITTER_CONSUMER_KEY")
	consumerSecret := os.Getenv("TWITTER_CONSUMER_SECRET")
	if consumerKey == "" || consumerSecret == "" {
		log.Println("WARNING: TWITTER_CONSUMER_KEY / TWITTER_CONSUMER_SECRET not set. Login will fail at runtime.")
	}

	summarizerURL := os.Getenv("SUMMARIZER_URL")
	if summarizerURL == "" {
		log.Println("WARNING: SUMMARIZER_URL not set. Bookmark sync will fail at runtime.")
	}

	digestTime := os.Getenv("DIGEST_TIME")
	if digestTime == "" {
		digestTime = defaultDigestTime
	}

	emailProvider := os.Getenv("EMAIL_PROVIDER")
	if emailProvider == "" {
		emailProvider = "sendgrid"
	}

	fromEmail := os.Getenv("FROM_EMAIL")
	if fromEmail == "" {
		fromEmail = defaultFromEmail
	}

	fromName := os.Getenv("FROM_NAME")
	if fromName == "" {
		fromName = defaultFromName
	}

	smtpPort := defaultSMTPPort
	if v := os.Getenv("SMTP_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("Invalid SMTP_PORT %q: %v", v, err)
		}
		smtpPort = p
	}

	return config{
		port:           port,
		databaseURL:    dbURL,
		baseURL:        baseURL,
		sessionSecret:  sessionSecret,
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		summarizerURL:  summarizerURL,
		summarizerKey:  os.Getenv("SUMMARIZER_API_KEY"),
		digestTime:     digestTime,
		emailProvider:  emailProvider,
		sendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		fromEmail:      fromEmail,
		fromName:       fromName,
		smtpHost:       os.Getenv("SMTP_HOST"),
		smtpPort:       smtpPort,
		smtpUsername:   os.Getenv("SMTP_USERNAME"),
		smtpPassword:   os.Getenv("SMTP_PASSWORD"),
	}
}

func buildEmailProvider(cfg config) delivery.EmailProvider {
	switch cfg.emailProvider {
	case "smtp":
		if cfg.smtpHost == "" {
			log.Println("WARNING: SMTP_HOST not set. Digest email will fail at runtime.")
		}
		return delivery.NewSMTPProvider(cfg.smtpHost, cfg.smtpPort, cfg.smtpUsername, cfg.smtpPassword, cfg.fromEmail)
	case "sendgrid":
		if cfg.sendGridAPIKey == "" {
			log.Println("WARNING: SENDGRID_API_KEY not set. Digest email will fail at runtime.")
		}
		return delivery.NewSendGridProvider(cfg.sendGridAPIKey, cfg.fromEmail, cfg.fromName)
	default:
		log.Fatalf("Unknown EMAIL_PROVIDER %q (want \"sendgrid\" or \"smtp\")", cfg.emailProvider)
		return nil
	}
}

func setupDatabase(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(dbMaxOpenConns)
	db.SetMaxIdleConns(dbMaxIdleConns)
	db.SetConnMaxLifetime(dbConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		db.Close() // Close unusable connection pool
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection successful")
	return db, nil
}

// startDigestCron registers the daily digest run at the configured
// wall-clock time and starts the cron loop.
func startDigestCron(digestTime string, svc *digest.Service) (*cron.Cron, error) {
	spec, err := digest.CronSpec(digestTime)
	if err != nil {
		return nil, err
	}

	c := cron.New()
	_, err = c.AddFunc(spec, func() {
		sent, err := svc.Run(context.Background())
		if err != nil {
			log.Printf("ERROR (Digest): Scheduled run failed: %v", err)
			return
		}
		log.Printf("INFO (Digest): Scheduled run sent %d digests", sent)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register digest schedule %q: %w", spec, err)
	}

	c.Start()
	log.Printf("Digest scheduled daily at %s", digestTime)
	return c, nil
}

func startServer(port string, router http.Handler) {
	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownSignal // Block until signal received
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}

	log.Println("Server gracefully stopped")
}

func randomSecret() []byte {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("Failed to generate session secret: %v", err)
	}
	return []byte(hex.EncodeToString(buf))
}
