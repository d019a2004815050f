// recalculate 重新評分整個目錄一次，寫回 qualityScore 並保存批次報告後結束。
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"PromptStudio-admin/internal/clients/provider"
	"PromptStudio-admin/internal/config"
	"PromptStudio-admin/internal/logger"
	"PromptStudio-admin/internal/services"
	"PromptStudio-admin/internal/storage/mysql"
	"PromptStudio-admin/internal/storage/reports"
)

func main() {
	configDir := flag.String("config", "./configs", "設定檔所在目錄")
	concurrency := flag.Int("concurrency", 0, "覆寫 evaluation.batchConcurrency (0 表示使用設定檔)")
	skipMigrate := flag.Bool("skip-migrate", false, "不執行資料庫遷移")
	flag.Parse()

	if err := run(*configDir, *concurrency, *skipMigrate); err != nil {
		log.Fatalf("錯誤：%v", err)
	}
}

func run(configDir string, concurrency int, skipMigrate bool) error {
	cfg, err := config.Load(configDir, "config")
	if err != nil {
		return fmt.Errorf("無法載入設定: %w", err)
	}
	if concurrency > 0 {
		cfg.Evaluation.BatchConcurrency = concurrency
	}
	appLog, err := logger.New(cfg.Logging.Mode)
	if err != nil {
		return err
	}
	defer appLog.Sync()

	if !skipMigrate {
		if err := mysql.Migrate(cfg.Database, appLog); err != nil {
			return err
		}
	}
	store, err := mysql.NewMySQLStore(cfg.Database, appLog)
	if err != nil {
		return err
	}
	defer store.Close()

	reportStorage, err := reports.NewFileSystemStorage(cfg.Reports, appLog)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	invoker, closeLLM, err := provider.New(ctx, cfg, appLog)
	if err != nil {
		return err
	}
	defer closeLLM()

	evaluationSvc, err := services.NewEvaluationService(cfg, store, invoker, appLog)
	if err != nil {
		return err
	}
	recalculateSvc, err := services.NewRecalculateService(store, evaluationSvc, reportStorage, appLog)
	if err != nil {
		return err
	}

	report, err := recalculateSvc.Recalculate(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"runId":         report.RunID,
		"summary":       report.Summary,
		"persisted":     report.Persisted,
		"persistFailed": report.PersistFailed,
		"reportPath":    report.ReportPath,
	})
}
