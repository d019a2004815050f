package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"PromptStudio-admin/internal/config"
	"PromptStudio-admin/internal/logger"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore 提示詞目錄、收藏與使用者提示詞的 MySQL 儲存層
type MySQLStore struct {
	db  *sql.DB
	log *logger.Logger
}

// NewMySQLStore 開啟連線並 ping 確認可用
func NewMySQLStore(dbCfg config.DatabaseConfig, log *logger.Logger) (*MySQLStore, error) {
	if dbCfg.Driver != "mysql" {
		return nil, fmt.Errorf("不支援的資料庫驅動程式: %s", dbCfg.Driver)
	}
	db, err := sql.Open("mysql", dbCfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("開啟資料庫連線失敗: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("無法連線到資料庫 (ping 失敗): %w", err)
	}
	db.SetMaxOpenConns(positiveOr(dbCfg.MaxOpenConns, 25))
	db.SetMaxIdleConns(positiveOr(dbCfg.MaxIdleConns, 25))
	db.SetConnMaxLifetime(time.Duration(positiveOr(dbCfg.ConnMaxLifetimeMinutes, 5)) * time.Minute)

	store := NewMySQLStoreFromDB(db, log)
	store.log.Info("成功連線到 MySQL 資料庫", "host", dbCfg.Host, "db", dbCfg.DBName)
	return store, nil
}

// NewMySQLStoreFromDB 以既有連線建立 store (測試使用 sqlmock)
func NewMySQLStoreFromDB(db *sql.DB, log *logger.Logger) *MySQLStore {
	if log == nil {
		log = logger.Nop()
	}
	return &MySQLStore{db: db, log: log.With("component", "MySQLStore")}
}

func (s *MySQLStore) Close() error {
	if s.db != nil {
		s.log.Info("正在關閉 MySQL 資料庫連線...")
		return s.db.Close()
	}
	return nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func copyBytes(src []byte) []byte {
	if src == nil {
		return nil
	}
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}

// escapeLike 跳脫 LIKE 萬用字元，使用者輸入一律視為字面文字
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// placeholders 產生 IN 子句用的 "?, ?, ?"
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// withTx 在交易中執行 fn，失敗時回滾
func (s *MySQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("開始交易失敗: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.log.Error("交易回滾失敗", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交交易失敗: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}
