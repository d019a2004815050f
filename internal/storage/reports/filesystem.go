package reports

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"PromptStudio-admin/internal/config"
	"PromptStudio-admin/internal/logger"
)

// ErrOutsideBase 路徑解析後落在報告根目錄之外
var ErrOutsideBase = errors.New("report path escapes base directory")

// FileSystemStorage 將批次評分報告以 JSON 檔保存在本地檔案系統
type FileSystemStorage struct {
	basePath string
	log      *logger.Logger
	now      func() time.Time
}

// NewFileSystemStorage 檢查根目錄，不存在時建立
func NewFileSystemStorage(cfg config.ReportsConfig, log *logger.Logger) (*FileSystemStorage, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("reports.path 不得為空")
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("component", "ReportStorage")

	absBasePath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("無法取得報告根目錄的絕對路徑 '%s': %w", cfg.Path, err)
	}
	if _, err := os.Stat(absBasePath); os.IsNotExist(err) {
		log.Info("報告根目錄不存在，正在建立", "path", absBasePath)
		if err := os.MkdirAll(absBasePath, 0o755); err != nil {
			return nil, fmt.Errorf("無法建立報告根目錄 '%s': %w", absBasePath, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("檢查報告根目錄 '%s' 時發生錯誤: %w", absBasePath, err)
	}

	log.Info("報告儲存初始化成功", "path", absBasePath)
	return &FileSystemStorage{basePath: absBasePath, log: log, now: time.Now}, nil
}

// buildTargetPath 例如 basePath/2025/05/24/<name>.json
func (fs *FileSystemStorage) buildTargetPath(name string) string {
	datePath := fs.now().Format("2006/01/02")
	fileName := filepath.Base(filepath.Clean(name))
	if !strings.HasSuffix(fileName, ".json") {
		fileName += ".json"
	}
	return filepath.Join(fs.basePath, filepath.FromSlash(datePath), fileName)
}

// SaveReport 寫入報告並回傳相對於根目錄的路徑 (以 / 分隔)
func (fs *FileSystemStorage) SaveReport(name string, payload []byte) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("SaveReport 參數 name 不得為空")
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("SaveReport 參數 payload 不得為空")
	}

	targetPath := fs.buildTargetPath(name)
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return "", fmt.Errorf("無法建立目標目錄 '%s': %w", filepath.Dir(targetPath), err)
	}
	if err := os.WriteFile(targetPath, payload, 0o644); err != nil {
		return "", fmt.Errorf("無法寫入報告檔案 '%s': %w", targetPath, err)
	}

	relativePath, err := filepath.Rel(fs.basePath, targetPath)
	if err != nil {
		return "", fmt.Errorf("無法取得報告的相對路徑: %w", err)
	}
	fs.log.Info("批次報告已保存", "path", relativePath, "bytes", len(payload))
	return filepath.ToSlash(relativePath), nil
}

// AbsolutePath 解析相對路徑並確認檔案存在
func (fs *FileSystemStorage) AbsolutePath(relativePath string) (string, error) {
	if relativePath == "" {
		return "", fmt.Errorf("relativePath 不得為空")
	}
	absPath := filepath.Join(fs.basePath, filepath.FromSlash(relativePath))
	rel, err := filepath.Rel(fs.basePath, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideBase, relativePath)
	}
	if _, err := os.Stat(absPath); err != nil {
		return "", fmt.Errorf("報告檔案 '%s' 無法存取: %w", relativePath, err)
	}
	return absPath, nil
}

// ReadReport 讀取先前保存的報告
func (fs *FileSystemStorage) ReadReport(relativePath string) ([]byte, error) {
	absPath, err := fs.AbsolutePath(relativePath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("無法讀取報告檔案 '%s': %w", absPath, err)
	}
	return data, nil
}
