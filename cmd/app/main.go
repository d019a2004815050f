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

	"PromptStudio-admin/internal/clients/provider"
	"PromptStudio-admin/internal/config"
	"PromptStudio-admin/internal/logger"
	"PromptStudio-admin/internal/scheduler"
	"PromptStudio-admin/internal/services"
	"PromptStudio-admin/internal/storage/mysql"
	"PromptStudio-admin/internal/storage/reports"
	"PromptStudio-admin/internal/web"
	"PromptStudio-admin/internal/web/handlers"
)

func main() {
	cfg, err := config.Load("./configs", "config")
	if err != nil {
		log.Fatalf("錯誤：無法載入設定: %v", err)
	}
	appLog, err := logger.New(cfg.Logging.Mode)
	if err != nil {
		log.Fatalf("錯誤：無法建立 logger: %v", err)
	}
	defer appLog.Sync()
	appLog = appLog.With("app", cfg.AppName)
	appLog.Info("應用程式設定載入成功", "llmProvider", cfg.LLM.Provider, "llmModel", cfg.LLM.Model,
		"batchConcurrency", cfg.Evaluation.BatchConcurrency)

	if err := mysql.Migrate(cfg.Database, appLog); err != nil {
		appLog.Fatal("資料庫遷移失敗", "error", err)
	}

	store, err := mysql.NewMySQLStore(cfg.Database, appLog)
	if err != nil {
		appLog.Fatal("初始化 MySQL 資料庫連線失敗", "error", err)
	}
	defer store.Close()

	reportStorage, err := reports.NewFileSystemStorage(cfg.Reports, appLog)
	if err != nil {
		appLog.Fatal("初始化報告儲存失敗", "error", err)
	}

	invoker, closeLLM, err := provider.New(context.Background(), cfg, appLog)
	if err != nil {
		appLog.Fatal("初始化 LLM 客戶端失敗", "error", err)
	}
	defer func() {
		if err := closeLLM(); err != nil {
			appLog.Warn("關閉 LLM 客戶端失敗", "error", err)
		}
	}()

	evaluationSvc, err := services.NewEvaluationService(cfg, store, invoker, appLog)
	if err != nil {
		appLog.Fatal("初始化評分服務失敗", "error", err)
	}
	optimizeSvc, err := services.NewOptimizeService(store, evaluationSvc, appLog)
	if err != nil {
		appLog.Fatal("初始化優化服務失敗", "error", err)
	}
	variationSvc, err := services.NewVariationService(store, evaluationSvc, appLog)
	if err != nil {
		appLog.Fatal("初始化變體服務失敗", "error", err)
	}
	recalculateSvc, err := services.NewRecalculateService(store, evaluationSvc, reportStorage, appLog)
	if err != nil {
		appLog.Fatal("初始化重新評分服務失敗", "error", err)
	}
	catalogSvc, err := services.NewCatalogService(store, store, appLog)
	if err != nil {
		appLog.Fatal("初始化目錄服務失敗", "error", err)
	}
	userPromptSvc, err := services.NewUserPromptService(store, store, appLog)
	if err != nil {
		appLog.Fatal("初始化使用者提示詞服務失敗", "error", err)
	}

	if cfg.Scheduler.Enabled {
		appScheduler, err := scheduler.NewScheduler(recalculateSvc, cfg.Scheduler.RecalculateCronSpec, appLog)
		if err != nil {
			appLog.Fatal("初始化排程器失敗", "error", err)
		}
		appScheduler.Start()
		defer appScheduler.Stop()
	} else {
		appLog.Info("排程器已在設定檔中禁用")
	}

	triggerHandler := handlers.NewTriggerRecalculateHandler(recalculateSvc, appLog)
	router := web.SetupRouter(web.Handlers{
		Evaluation:  handlers.NewEvaluationHandler(evaluationSvc, optimizeSvc, variationSvc, appLog),
		Prompts:     handlers.NewPromptHandler(catalogSvc, appLog),
		UserPrompts: handlers.NewUserPromptHandler(userPromptSvc, appLog),
		Export:      handlers.NewExportHandler(catalogSvc, appLog),
		Recalculate: triggerHandler,
		Reports:     handlers.NewReportHandler(reportStorage, appLog),
	}, appLog)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLog.Info("HTTP 伺服器正在監聽", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("HTTP 伺服器監聽失敗", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("收到關閉訊號，正在關閉應用程式...")
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLog.Error("HTTP 伺服器優雅關閉失敗", "error", err)
	}
	recalculateSvc.Stop()
	triggerHandler.Wait()
	appLog.Info("應用程式已成功關閉")
}
