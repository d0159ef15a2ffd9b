package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"ifc-query-api/res/auth"
	"ifc-query-api/res/cookie"
	"ifc-query-api/res/store/postgresql"
	"ifc-query-api/sys/http/handler"
	"ifc-query-api/sys/http/middleware"

	"github.com/joho/godotenv"
)

var logger = log.New(os.Stdout, "(cmd/main.go)", log.LstdFlags|log.LUTC|log.Llongfile)

const (
	defaultCookiePrefix = "ifc_query_"

	// Shipping with this secret means every deployment can forge every
	// other deployment's cookies. Flagged at startup, not silently allowed.
	insecureDefaultCookieSecret = "default-secret-key"
)

func main() {
	// Load .env file in development
	err := godotenv.Load()
	if err != nil {
		err = godotenv.Load("ifc-query-api/.env")
	}
	if err != nil {
		logger.Printf("Note: .env file not found, using system environment variables")
	}

	port := readEnvVar("PORT", "8080")
	environment := readEnvVar("ENVIRONMENT", "development")

	clientID := readRequiredEnvVar("CLIENT_ID")
	clientSecret := readRequiredEnvVar("CLIENT_SECRET")
	redirectURI := readRequiredEnvVar("REDIRECT_URI")

	cookieSecret := readEnvVar("COOKIE_SECRET", insecureDefaultCookieSecret)
	if cookieSecret == insecureDefaultCookieSecret {
		logger.Printf("WARNING: COOKIE_SECRET is not set; falling back to the insecure default. Do not deploy like this.")
	}
	cookiePrefix := readEnvVar("COOKIE_PREFIX", defaultCookiePrefix)

	// Store setup; migrations run to completion before anything else
	// touches the database.

	dbURL := readRequiredEnvVar("DATABASE_POSTGRES_URL")
	storeInstance, err := postgresql.Connect(dbURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := storeInstance.Migrate(logger); err != nil {
		logger.Fatalf("Failed to migrate database, refusing to serve: %v", err)
	}

	// Storage hygiene only; expired sessions are already invisible to
	// lookups regardless.
	if err := storeInstance.Sessions().DeleteExpired(context.Background(), time.Now().UTC()); err != nil {
		logger.Printf("Warning: failed to sweep expired sessions: %v", err)
	}

	// Auth wiring

	codec, err := cookie.New(cookiePrefix, cookieSecret)
	if err != nil {
		logger.Fatalf("Failed to initialize cookie codec: %v", err)
	}

	provider := auth.NewGitHub(clientID, clientSecret, redirectURI)
	authenticator := auth.NewAuthenticator(logger, storeInstance, provider, codec, cookieSecret)

	secureCookies := environment == "production"
	authHandler := handler.NewAuthHandler(logger, authenticator, codec, secureCookies, "/me")

	// Routes

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", authHandler.Login)
	mux.HandleFunc("/auth/callback", authHandler.Callback)
	mux.HandleFunc("/auth/logout", authHandler.Logout)
	mux.HandleFunc("/me", authHandler.Me)

	chain := middleware.CSPMiddleware()(
		middleware.CORSMiddleware()(
			middleware.SessionMiddleware(logger, authenticator, codec, secureCookies)(mux),
		),
	)

	logger.Printf("Starting server on :%s (environment: %s)\n", port, environment)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", port), chain); err != nil {
		logger.Fatalf("Server failed to start: %v", err)
	}
}

func readRequiredEnvVar(name string) string {
	val, ok := os.LookupEnv(name)
	if !ok {
		logger.Fatalf("Env variable not set: %s", name)
	}
	return val
}

func readEnvVar(name, fallback string) string {
	val, ok := os.LookupEnv(name)
	if !ok || val == "" {
		return fallback
	}
	return val
}
