package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"buyee-scraper/internal/configs"
	"buyee-scraper/internal/handler"
	"buyee-scraper/internal/infrastructure/browser"
	"buyee-scraper/internal/infrastructure/buyee"
	"buyee-scraper/internal/infrastructure/ledger"
	"buyee-scraper/internal/usecase"
)

func main() {
	cfg := configs.Load()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      cfg.LogLevel,
		TimeFormat: time.TimeOnly,
	}))
	slog.SetDefault(logger)

	if cfg.InstallBrowsers {
		logger.Info("installing browser binaries")
		if err := browser.Install(); err != nil {
			logger.Error("❌ failed to install browser binaries", "error", err)
			os.Exit(1)
		}
	}

	sessions, err := browser.NewManager(cfg.Headless, logger)
	if err != nil {
		logger.Error("❌ failed to start browser driver", "error", err)
		os.Exit(1)
	}
	defer sessions.Close()

	// 依存関係の組み立て（依存性注入）
	// DBの代わりにScraperを注入することで、腐敗防止層のパターンを実現
	listings := buyee.NewListingScraper(sessions, cfg.SearchCachePath, logger)
	bids := buyee.NewBidGateway(sessions, cfg.CredentialPath, logger)
	bidLedger := ledger.NewFileLedger(cfg.LedgerPath, logger)

	searchUC := usecase.NewSearchUsecase(listings, cfg.BatchPacing, logger)
	bidUC := usecase.NewBidUsecase(bids, bidLedger, listings, cfg.UpdatePacing, logger)

	h := handler.NewScraperHandler(searchUC, bidUC, cfg.BatchConcurrency, logger)
	router := handler.NewRouter(h, cfg.AllowedOrigins)

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // スクレイピングは分単位で走る
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンの設定
	go func() {
		logger.Info(fmt.Sprintf("🚀 Server starting on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("❌ Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// シグナル待機（Ctrl+Cなど）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("❌ Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("✅ Server exited")
}
