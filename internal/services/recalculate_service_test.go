package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"PromptStudio-admin/internal/apperr"
	"PromptStudio-admin/internal/clients/llm"
	"PromptStudio-admin/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecalculatePersistsScoresAndArchivesReport(t *testing.T) {
	precise := fixture(t, "precise.json")
	store := newFakeStore(
		catalogPrompt(1, 1, "Alpha", precise),
		catalogPrompt(2, 2, "Beta", precise),
		catalogPrompt(3, 3, "Gamma", `{"shot":{}}`),
		catalogPrompt(4, 4, "Delta", precise),
	)
	store.failScoreFor = 4
	inv := &fakeInvoker{respond: scoreByContent(map[string]float64{
		"Title: Alpha": 9.4,
		"Title: Beta":  6.2,
		"Title: Delta": 8.0,
	}, 5)}
	reports := &memoryReports{}
	svc, err := NewRecalculateService(store, newEvaluator(t, store, inv, 2), reports, nil)
	require.NoError(t, err)
	assert.Nil(t, svc.LastRun())

	report, err := svc.Recalculate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, report.Summary.Total)
	assert.Equal(t, 3, report.Summary.Successful)
	assert.Equal(t, 1, report.Summary.Failed)
	assert.Equal(t, 2, report.Persisted)
	assert.Equal(t, 1, report.PersistFailed)

	assert.Equal(t, 9.4, store.scoreUpdates[1].Float64)
	assert.Equal(t, 6.2, store.scoreUpdates[2].Float64)
	assert.NotContains(t, store.scoreUpdates, int64(3))
	assert.Empty(t, store.contentUpdates)

	require.NotEmpty(t, report.ReportPath)
	assert.Equal(t, "2025/01/01/recalculate-"+report.RunID+".json", report.ReportPath)
	raw, err := reports.ReadReport(report.ReportPath)
	require.NoError(t, err)
	var archived struct {
		RunID     string `json:"runId"`
		Persisted int    `json:"persisted"`
	}
	require.NoError(t, json.Unmarshal(raw, &archived))
	assert.Equal(t, report.RunID, archived.RunID)
	assert.Equal(t, 2, archived.Persisted)

	assert.Same(t, report, svc.LastRun())
}

func TestRecalculateEmptyCatalog(t *testing.T) {
	store := newFakeStore()
	inv := &fakeInvoker{respond: scoreByContent(nil, 8)}
	reports := &memoryReports{}
	svc, err := NewRecalculateService(store, newEvaluator(t, store, inv, 1), reports, nil)
	require.NoError(t, err)

	report, err := svc.Recalculate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Summary.Total)
	assert.Empty(t, report.Results)
	assert.Empty(t, report.ReportPath)
	assert.Empty(t, reports.saved)
	assert.Zero(t, inv.count())
}

func TestRecalculateRunWithoutReportStorage(t *testing.T) {
	store := newFakeStore(catalogPrompt(1, 1, "Alpha", fixture(t, "precise.json")))
	store.prompts[1].QualityScore = models.NewScore(3)
	inv := &fakeInvoker{respond: scoreByContent(nil, 8.8)}
	svc, err := NewRecalculateService(store, newEvaluator(t, store, inv, 1), nil, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Run())
	assert.Equal(t, 8.8, store.prompts[1].QualityScore.Float64)
	require.NotNil(t, svc.LastRun())
	assert.Empty(t, svc.LastRun().ReportPath)
}

// rewriteDuringCall 模擬評分期間另一個請求套用了優化內容
func rewriteDuringCall(store *fakeStore, id int64, score float64) func(llm.Request, int) (string, error) {
	return func(_ llm.Request, call int) (string, error) {
		if call == 1 {
			if err := store.UpdatePromptContent(context.Background(), id, `{"new":"content"}`, models.NewScore(9.5)); err != nil {
				return "", err
			}
		}
		return evaluationJSON(score), nil
	}
}

func TestRecalculateSkipsPromptsRewrittenDuringEvaluation(t *testing.T) {
	store := newFakeStore(catalogPrompt(1, 1, "Alpha", fixture(t, "precise.json")))
	inv := &fakeInvoker{respond: rewriteDuringCall(store, 1, 4)}
	svc, err := NewRecalculateService(store, newEvaluator(t, store, inv, 1), nil, nil)
	require.NoError(t, err)

	report, err := svc.Recalculate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Summary.Successful)
	assert.Zero(t, report.Persisted)
	assert.Zero(t, report.PersistFailed)
	assert.Equal(t, 1, report.SkippedStale)
	assert.Equal(t, `{"new":"content"}`, store.prompts[1].PromptJSON)
	assert.Equal(t, 9.5, store.prompts[1].QualityScore.Float64)
}

func TestValidatePersistRejectsRewrittenPrompt(t *testing.T) {
	store := newFakeStore(catalogPrompt(1, 1, "Alpha", fixture(t, "precise.json")))
	inv := &fakeInvoker{respond: rewriteDuringCall(store, 1, 4)}
	svc := newEvaluator(t, store, inv, 1)

	_, err := svc.Analyze(context.Background(), 1, true)
	assert.ErrorIs(t, err, apperr.ErrContentChanged)
	assert.Equal(t, 9.5, store.prompts[1].QualityScore.Float64)
}

func TestStopCancelsRunningRecalculation(t *testing.T) {
	store := newFakeStore(
		catalogPrompt(1, 1, "Alpha", fixture(t, "precise.json")),
		catalogPrompt(2, 2, "Beta", fixture(t, "precise.json")),
	)
	evaluator, err := NewEvaluationService(testConfig(1), store, blockingInvoker{}, nil)
	require.NoError(t, err)
	svc, err := NewRecalculateService(store, evaluator, nil, nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- svc.Run() }()
	time.Sleep(20 * time.Millisecond)
	svc.Stop()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("recalculation did not stop after Stop")
	}
	assert.Empty(t, store.scoreUpdates)
	assert.Nil(t, svc.LastRun())

	assert.ErrorIs(t, svc.Run(), context.Canceled)
}
