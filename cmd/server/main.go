package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/cardroom/landlord/internal/config"
	"github.com/cardroom/landlord/internal/rule"
	"github.com/cardroom/landlord/internal/server"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg := config.Load()

	ctx := context.Background()
	h := server.NewHub(ctx, rule.New(), server.Options{
		BotFillDelay: cfg.BotFillDelay,
		BotTurnDelay: cfg.BotTurnDelay,
		RevealDelay:  cfg.RevealDelay,
	}, log)

	handler := server.SetupRoutes(h, log)

	log.Info("listening", zap.String("addr", cfg.ListenAddr))
	if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
