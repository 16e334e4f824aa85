package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/whatease/backend/internal/auth"
	"github.com/whatease/backend/internal/config"
	"github.com/whatease/backend/internal/handler"
	"github.com/whatease/backend/internal/service/assistant"
	chatservice "github.com/whatease/backend/internal/service/chat"
	"github.com/whatease/backend/internal/service/session"
	"github.com/whatease/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	st, err := openStore(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("failed to open message store: %v", err)
	}
	defer st.Close()

	registry := session.NewRegistry()
	cache := assistant.NewContextCache()
	bridge := assistant.NewBridge(cfg.Assistant, cache)
	if !cfg.Assistant.Enabled() {
		log.Println("warning: GROQ_API_KEY not set; assistant replies will degrade to error text")
	}

	chatSvc := chatservice.NewService(st, registry, bridge, cfg.Assistant.Identity)
	tokens := auth.NewManager(cfg.Auth.Secret, cfg.Auth.TokenTTL)

	router := handler.NewRouter(st, chatSvc, tokens, cfg.RateLimit)

	startServer(ctx, cfg.Server, router)
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	switch cfg.Driver {
	case "memory":
		log.Println("using in-memory message store; contents are lost on restart")
		return store.NewMemory(), nil
	default:
		return store.OpenPostgres(ctx, cfg.URL)
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("WhatEase backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
