package mysql

import (
	"errors"
	"fmt"

	"PromptStudio-admin/internal/config"
	"PromptStudio-admin/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate 套用 migrationsPath 下所有尚未執行的遷移。資料庫處於 dirty 狀態時直接失敗。
func Migrate(dbCfg config.DatabaseConfig, log *logger.Logger) (err error) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("component", "Migrate")

	log.Info("準備執行資料庫遷移", "source", dbCfg.MigrationsPath, "database", dbCfg.DBName)
	m, err := migrate.New(dbCfg.MigrationsPath, dbCfg.MigrateURL())
	if err != nil {
		return fmt.Errorf("建立遷移實例失敗: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err == nil {
			err = errors.Join(srcErr, dbErr)
		}
	}()

	currentVersion, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("獲取資料庫遷移版本失敗: %w", err)
	}
	if dirty {
		return fmt.Errorf("資料庫處於 dirty 狀態 (版本 %d)，請手動修復後再遷移", currentVersion)
	}

	log.Info("開始應用遷移", "currentVersion", currentVersion)
	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		log.Info("資料庫結構已是最新，無需遷移")
	case err != nil:
		return fmt.Errorf("執行資料庫遷移 (m.Up) 失敗: %w", err)
	default:
		newVersion, _, _ := m.Version()
		log.Info("資料庫遷移成功完成", "version", newVersion)
	}
	return nil
}
