package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/grocerly/backend/internal/cache"
	"github.com/grocerly/backend/internal/config"
	"github.com/grocerly/backend/internal/db"
	"github.com/grocerly/backend/internal/handler"
	"github.com/grocerly/backend/internal/model"
	"github.com/grocerly/backend/internal/service"
	"github.com/grocerly/backend/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Main] Config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := db.Connect(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("[Main] Store connection aborted: %v", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("[Main] Schema bootstrap failed: %v", err)
	}

	// Shared state lives here, constructed once and passed into every
	// handler and connection.
	itemCache := cache.NewEnvelope[model.Item](cache.DefaultTTL)
	userCache := cache.NewEnvelope[model.User](cache.DefaultTTL)
	ledger := service.NewRevocationLedger()
	hub := ws.NewHub([]byte(cfg.Auth.JWTSecret), ledger, cfg.CORSOrigins)

	authSvc := service.NewAuthService(store, userCache, ledger, hub, cfg.Auth)
	itemSvc := service.NewItemService(store, itemCache, hub)

	sweeper := service.NewRetentionSweeper(store, itemCache)
	go sweeper.Run(ctx)

	router := gin.Default()
	router.Use(handler.CORSMiddleware(cfg.CORSOrigins))

	authHandler := handler.NewAuthHandler(authSvc)
	itemsHandler := handler.NewItemsHandler(itemSvc)
	wsHandler := handler.NewWSHandler(hub, itemSvc)

	router.GET("/healthz", handler.Health)
	router.POST("/v1/auth", authHandler.Login)
	router.POST("/v1/auth/create", authHandler.Register)
	router.POST("/v1/auth/logoff", authHandler.Logoff)
	router.GET("/v1/items/list", itemsHandler.List)
	router.GET("/ws", wsHandler.Serve)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("[Main] Listening on ::%s", cfg.Port)
	if cfg.TLS.Enabled() {
		srv.TLSConfig, err = buildTLSConfig(cfg.TLS)
		if err != nil {
			log.Fatalf("[Main] TLS config error: %v", err)
		}
		err = srv.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	} else {
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("[Main] Server error: %v", err)
	}
}

// buildTLSConfig wires mutual authentication when a client CA is configured.
func buildTLSConfig(cfg config.TLSConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.ClientCAFile != "" {
		pem, err := os.ReadFile(cfg.ClientCAFile)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New("no certificates found in " + cfg.ClientCAFile)
		}
		tlsCfg.ClientCAs = pool
		tlsCfg.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return tlsCfg, nil
}
