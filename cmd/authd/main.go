package main

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"authd/internal/account"
	"authd/internal/auth"
	"authd/internal/bootstrap"
	"authd/internal/config"
	"authd/internal/httpapi"
	"authd/internal/store"
	"authd/internal/store/memory"
	"authd/internal/store/postgres"
)

func main() {
	cfg := config.Load()

	// The bootstrap prompts block the main goroutine; the server starts
	// only after the operator is verified.
	settings, err := bootstrap.LoadOrPrompt(cfg.SettingsPath)
	if err != nil {
		log.Fatalf("load settings: %v", err)
	}

	rootPassword, err := bootstrap.VerifyOperator(settings)
	if err != nil {
		log.Fatalf("operator verification: %v", err)
	}

	var st store.Store
	var closer func()

	switch {
	case cfg.DatabaseURL != "":
		pg, err := postgres.NewStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to init postgres store: %v", err)
		}
		st = pg
		closer = pg.Close
		log.Printf("using postgres store")
	case settings.DatabaseType == bootstrap.DatabaseRemote && settings.DatabaseEndpoint != "":
		pg, err := postgres.NewStore(remoteDSN(settings, rootPassword))
		if err != nil {
			log.Fatalf("failed to init postgres store: %v", err)
		}
		st = pg
		closer = pg.Close
		log.Printf("using postgres store at %s", settings.DatabaseEndpoint)
	default:
		st = memory.NewStore()
		log.Printf("using memory store")
	}

	if closer != nil {
		defer closer()
	}

	srv := httpapi.NewServer(cfg, account.NewService(st), auth.NewGate(settings.APIKeyHash))

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("authd listening on %s", cfg.ListenAddr())
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Printf("shutdown requested")
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(ctxShutdown)
}

// remoteDSN builds the connection string for a remote store from the
// bootstrap settings and the operator-verified root password.
func remoteDSN(s bootstrap.Settings, rootPassword string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(s.RootUser, rootPassword),
		Host:   s.DatabaseEndpoint,
		Path:   "/authd",
	}
	return u.String()
}
