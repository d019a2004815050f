package mysql

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"PromptStudio-admin/internal/apperr"
	"PromptStudio-admin/internal/logger"
	"PromptStudio-admin/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var promptCols = []string{"id", "promptNumber", "title", "description", "scenarioType", "industrySector", "visualStyle",
	"durationSeconds", "originalDuration", "promptJson", "qualityScore", "createdAt", "updatedAt"}

func newMockStore(t *testing.T) (*MySQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewMySQLStoreFromDB(db, logger.Nop()), mock
}

func promptRow(rows *sqlmock.Rows, id int64, number int, score any) *sqlmock.Rows {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return rows.AddRow(id, number, "Morning Espresso", "desc", "product", "Food & Beverage", "cinematic",
		15, 15, `{"shot":{}}`, score, now, now)
}

func TestGetPromptByID(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM prompts WHERE id = ?")).
		WithArgs(int64(7)).
		WillReturnRows(promptRow(sqlmock.NewRows(promptCols), 7, 3, []byte("8.4")))

	p, err := store.GetPromptByID(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 3, p.PromptNumber)
	assert.True(t, p.QualityScore.Valid)
	assert.InDelta(t, 8.4, p.QualityScore.Float64, 1e-9)
}

func TestGetPromptByIDNotFoundReturnsNil(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM prompts WHERE id = ?")).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	p, err := store.GetPromptByID(context.Background(), 99)
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestGetPromptByNumberKeepsNullScore(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM prompts WHERE promptNumber = ?")).
		WithArgs(12).
		WillReturnRows(promptRow(sqlmock.NewRows(promptCols), 40, 12, nil))

	p, err := store.GetPromptByNumber(context.Background(), 12)
	require.NoError(t, err)
	assert.False(t, p.QualityScore.Valid)
	assert.Nil(t, p.QualityScore.Ptr())
}

func TestGetPromptsByNumbers(t *testing.T) {
	store, mock := newMockStore(t)
	rows := sqlmock.NewRows(promptCols)
	promptRow(rows, 1, 1, nil)
	promptRow(rows, 2, 4, 7.5)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE promptNumber IN (?, ?, ?) ORDER BY promptNumber ASC")).
		WithArgs(1, 4, 9).
		WillReturnRows(rows)

	prompts, err := store.GetPromptsByNumbers(context.Background(), []int{1, 4, 9})
	require.NoError(t, err)
	assert.Len(t, prompts, 2)

	empty, err := store.GetPromptsByNumbers(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSearchPromptsEscapesLikeAndFilters(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE (title LIKE ? OR description LIKE ? OR promptJson LIKE ?) AND industrySector = ? AND visualStyle = ? ORDER BY promptNumber ASC")).
		WithArgs(`%50\%\_off%`, `%50\%\_off%`, `%50\%\_off%`, "Retail", "documentary").
		WillReturnRows(sqlmock.NewRows(promptCols))

	prompts, err := store.SearchPrompts(context.Background(), models.PromptFilter{Search: " 50%_off ", IndustrySector: "Retail", VisualStyle: "documentary"})
	require.NoError(t, err)
	assert.NotNil(t, prompts)
	assert.Empty(t, prompts)
}

func TestListPromptsWithoutFilters(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`FROM prompts ORDER BY promptNumber ASC$`).
		WillReturnRows(promptRow(sqlmock.NewRows(promptCols), 1, 1, 9.1))

	prompts, err := store.ListPrompts(context.Background())
	require.NoError(t, err)
	require.Len(t, prompts, 1)
	assert.InDelta(t, 9.1, prompts[0].QualityScore.Float64, 1e-9)
}

func TestGetPromptStats(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*), COUNT(qualityScore)")).
		WillReturnRows(sqlmock.NewRows([]string{"total", "scored", "avg", "gold", "silver", "bronze", "poor"}).
			AddRow(10, 8, 7.2625, 2, 3, 2, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT industrySector")).
		WillReturnRows(sqlmock.NewRows([]string{"industrySector"}).AddRow("Automotive").AddRow("Retail"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT visualStyle")).
		WillReturnRows(sqlmock.NewRows([]string{"visualStyle"}).AddRow("cinematic"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT scenarioType")).
		WillReturnRows(sqlmock.NewRows([]string{"scenarioType"}))

	stats, err := store.GetPromptStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 8, stats.Scored)
	assert.Equal(t, 7.3, stats.AverageScore)
	assert.Equal(t, models.TierDistribution{Gold: 2, Silver: 3, Bronze: 2, Poor: 1}, stats.Distribution)
	assert.Equal(t, []string{"Automotive", "Retail"}, stats.Sectors)
	assert.Equal(t, []string{"cinematic"}, stats.Styles)
	assert.Empty(t, stats.Scenarios)
}

func TestUpdatePromptContentWritesJSONAndScoreTogether(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE prompts SET promptJson = ?, qualityScore = ?, updatedAt = NOW() WHERE id = ?")).
		WithArgs(`{"shot":{}}`, 8.7, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdatePromptContent(context.Background(), 5, `{"shot":{}}`, models.NewScore(8.7))
	assert.NoError(t, err)
}

func TestUpdatePromptScoreRequiresEvaluatedContent(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE prompts SET qualityScore = ?, updatedAt = NOW() WHERE id = ? AND promptJson = ?")).
		WithArgs(8.1, int64(5), `{"shot":{}}`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, store.UpdatePromptScore(context.Background(), 5, `{"shot":{}}`, models.NewScore(8.1)))
}

func TestUpdatePromptScoreMissingRowIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE prompts SET qualityScore = ?")).
		WithArgs(6.0, int64(404), `{}`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM prompts WHERE id = ?")).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	err := store.UpdatePromptScore(context.Background(), 404, `{}`, models.NewScore(6))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "Prompt 404 not found", err.Error())
}

func TestUpdatePromptScoreChangedContentIsSkipped(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE prompts SET qualityScore = ?")).
		WithArgs(4.0, int64(1), `{"old":"content"}`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM prompts WHERE id = ?")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	err := store.UpdatePromptScore(context.Background(), 1, `{"old":"content"}`, models.NewScore(4))
	assert.ErrorIs(t, err, apperr.ErrContentChanged)
	assert.NotErrorIs(t, err, apperr.ErrNotFound)
}

func TestFavorites(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO favorites")).
		WithArgs(int64(1), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM favorites f JOIN prompts p")).
		WithArgs(int64(1)).
		WillReturnRows(promptRow(sqlmock.NewRows(promptCols), 7, 2, nil))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM favorites WHERE userId = ? AND promptId = ?")).
		WithArgs(int64(1), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	require.NoError(t, store.AddFavorite(ctx, 1, 7))
	favs, err := store.ListFavoritePrompts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, int64(7), favs[0].ID)
	require.NoError(t, store.RemoveFavorite(ctx, 1, 7))
}

func TestCreateUserPrompt(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_prompts")).
		WithArgs(int64(3), int64(7), nil, "My espresso", nil, `["coffee"]`, `{"shot":{}}`, 8.2).
		WillReturnResult(sqlmock.NewResult(21, 1))

	up := &models.UserPrompt{
		UserID:         3,
		SourcePromptID: 7,
		Title:          "My espresso",
		Tags:           []byte(`["coffee"]`),
		PromptJSON:     `{"shot":{}}`,
		QualityScore:   models.NewScore(8.2),
	}
	id, err := store.CreateUserPrompt(context.Background(), up)
	require.NoError(t, err)
	assert.Equal(t, int64(21), id)
	assert.Equal(t, int64(21), up.ID)
}

var userPromptCols = []string{"id", "userId", "sourcePromptId", "folderId", "title", "description", "tags", "promptJson", "qualityScore", "createdAt", "updatedAt"}

func TestListUserPromptsWithFolder(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_prompts WHERE userId = ? AND folderId = ? ORDER BY updatedAt DESC")).
		WithArgs(int64(3), int64(2)).
		WillReturnRows(sqlmock.NewRows(userPromptCols).
			AddRow(1, 3, 7, 2, "A", nil, []byte(`["x"]`), `{}`, nil, now, now))

	folder := int64(2)
	list, err := store.ListUserPrompts(context.Background(), 3, &folder)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].FolderID)
	assert.Equal(t, int64(2), *list[0].FolderID)
	assert.JSONEq(t, `["x"]`, string(list[0].Tags))
	assert.False(t, list[0].Description.Valid)
}

func TestUpdateUserPromptContentArchivesPreviousVersion(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT promptJson, qualityScore FROM user_prompts WHERE id = ? AND userId = ? FOR UPDATE")).
		WithArgs(int64(9), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"promptJson", "qualityScore"}).AddRow(`{"old":1}`, 6.5))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(versionNumber), 0) + 1")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_prompt_versions")).
		WithArgs(int64(9), 3, `{"old":1}`, 6.5).
		WillReturnResult(sqlmock.NewResult(44, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_prompts SET promptJson = ?, qualityScore = ?")).
		WithArgs(`{"new":1}`, nil, int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	version, err := store.UpdateUserPromptContent(context.Background(), 3, 9, `{"new":1}`, models.JsonNullScore{})
	require.NoError(t, err)
	assert.Equal(t, 3, version.VersionNumber)
	assert.Equal(t, int64(44), version.ID)
	assert.Equal(t, `{"old":1}`, version.PromptJSON)
	assert.InDelta(t, 6.5, version.QualityScore.Float64, 1e-9)
}

func TestUpdateUserPromptContentMissingRowRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(9), int64(3)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := store.UpdateUserPromptContent(context.Background(), 3, 9, `{}`, models.JsonNullScore{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteUserPrompt(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_prompts WHERE id = ? AND userId = ?")).
		WithArgs(int64(9), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_prompt_versions WHERE userPromptId = ?")).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, store.DeleteUserPrompt(context.Background(), 3, 9))
}

func TestDeleteUserPromptPropagatesFailure(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_prompts")).
		WithArgs(int64(9), int64(3)).
		WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	err := store.DeleteUserPrompt(context.Background(), 3, 9)
	assert.ErrorContains(t, err, "lock wait timeout")
}

func TestListUserPromptVersions(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_prompt_versions WHERE userPromptId = ? ORDER BY versionNumber DESC")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "userPromptId", "versionNumber", "promptJson", "qualityScore", "createdAt"}).
			AddRow(2, 9, 2, `{}`, nil, now).
			AddRow(1, 9, 1, `{}`, 5.5, now))

	versions, err := store.ListUserPromptVersions(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].VersionNumber)
	assert.False(t, versions[0].QualityScore.Valid)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "?, ?", placeholders(2))
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, `%a\\b%`, escapeLike(`a\b`))
	assert.Equal(t, 25, positiveOr(0, 25))
	assert.Nil(t, copyBytes(nil))
}
