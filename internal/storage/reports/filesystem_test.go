package reports

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"PromptStudio-admin/internal/config"
	"PromptStudio-admin/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStorage(t *testing.T) *FileSystemStorage {
	t.Helper()
	base := filepath.Join(t.TempDir(), "reports")
	fs, err := NewFileSystemStorage(config.ReportsConfig{Path: base}, logger.Nop())
	require.NoError(t, err)
	fs.now = func() time.Time { return time.Date(2025, 5, 24, 3, 0, 0, 0, time.UTC) }
	return fs
}

func TestSaveAndReadReport(t *testing.T) {
	fs := newStorage(t)

	rel, err := fs.SaveReport("recalculate-abc", []byte(`{"total":2}`))
	require.NoError(t, err)
	assert.Equal(t, "2025/05/24/recalculate-abc.json", rel)

	data, err := fs.ReadReport(rel)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":2}`, string(data))
}

func TestSaveReportStripsDirectories(t *testing.T) {
	fs := newStorage(t)

	rel, err := fs.SaveReport("../../etc/evil.json", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "2025/05/24/evil.json", rel)
}

func TestReadReportRejectsTraversal(t *testing.T) {
	fs := newStorage(t)
	outside := filepath.Join(filepath.Dir(fs.basePath), "secret.json")
	require.NoError(t, os.WriteFile(outside, []byte(`{}`), 0o644))

	_, err := fs.ReadReport("../secret.json")
	assert.ErrorIs(t, err, ErrOutsideBase)

	_, err = fs.ReadReport("2025/01/01/missing.json")
	assert.Error(t, err)
}

func TestSaveReportValidatesInput(t *testing.T) {
	fs := newStorage(t)
	_, err := fs.SaveReport("", []byte(`{}`))
	assert.Error(t, err)
	_, err = fs.SaveReport("x", nil)
	assert.Error(t, err)

	_, err = NewFileSystemStorage(config.ReportsConfig{}, logger.Nop())
	assert.Error(t, err)
}
