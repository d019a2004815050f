package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"PromptStudio-admin/internal/apperr"
	"PromptStudio-admin/internal/models"
	"PromptStudio-admin/internal/services"
	"PromptStudio-admin/internal/web/handlers"

	"github.com/stretchr/testify/assert"
)

type nopServices struct{}

func (nopServices) Validate(context.Context, services.ValidateInput) (*services.ValidateResult, error) {
	return &services.ValidateResult{}, nil
}
func (nopServices) Analyze(_ context.Context, id int64, _ bool) (*services.ValidateResult, error) {
	return &services.ValidateResult{PromptID: id}, nil
}
func (nopServices) ValidateBatch(context.Context, []services.BatchItem) (*services.BatchReport, error) {
	return &services.BatchReport{}, nil
}
func (nopServices) Optimize(_ context.Context, id int64, _ bool) (*services.OptimizeResult, error) {
	return &services.OptimizeResult{PromptID: id}, nil
}
func (nopServices) GenerateVariations(_ context.Context, id int64, _ services.VariationRequest) (*services.VariationsResult, error) {
	return &services.VariationsResult{PromptID: id}, nil
}
func (nopServices) List(context.Context, models.PromptFilter) ([]models.Prompt, error) {
	return []models.Prompt{}, nil
}
func (nopServices) Get(_ context.Context, id int64) (*models.Prompt, error) {
	return nil, apperr.NotFound("Prompt", id)
}
func (nopServices) GetByNumber(_ context.Context, n int) (*models.Prompt, error) {
	return &models.Prompt{PromptNumber: n}, nil
}
func (nopServices) GetByNumbers(context.Context, []int) ([]models.Prompt, error) {
	return []models.Prompt{}, nil
}
func (nopServices) Stats(context.Context) (*models.CatalogStats, error) {
	return &models.CatalogStats{Total: 7}, nil
}
func (nopServices) AddFavorite(context.Context, int64, int64) error { return nil }
func (nopServices) RemoveFavorite(context.Context, int64, int64) error { return nil }
func (nopServices) Favorites(context.Context, int64) ([]models.Prompt, error) {
	return []models.Prompt{}, nil
}

type nopUserPrompts struct{}

func (nopUserPrompts) Save(context.Context, int64, services.SaveInput) (*models.UserPrompt, error) {
	return &models.UserPrompt{}, nil
}
func (nopUserPrompts) List(context.Context, int64, *int64) ([]models.UserPrompt, error) {
	return []models.UserPrompt{}, nil
}
func (nopUserPrompts) Get(_ context.Context, _, id int64) (*models.UserPrompt, error) {
	return &models.UserPrompt{ID: id}, nil
}
func (nopUserPrompts) Update(_ context.Context, _, id int64, _ services.UpdateInput) (*models.UserPrompt, error) {
	return &models.UserPrompt{ID: id}, nil
}
func (nopUserPrompts) Delete(context.Context, int64, int64) error { return nil }
func (nopUserPrompts) Versions(context.Context, int64, int64) ([]models.PromptVersion, error) {
	return []models.PromptVersion{}, nil
}

type nopRunner struct{}

func (nopRunner) Run() error { return nil }
func (nopRunner) LastRun() *services.RecalculationReport { return nil }

func newTestRouter() http.Handler {
	svc := nopServices{}
	return SetupRouter(Handlers{
		Evaluation:  handlers.NewEvaluationHandler(svc, svc, svc, nil),
		Prompts:     handlers.NewPromptHandler(svc, nil),
		UserPrompts: handlers.NewUserPromptHandler(nopUserPrompts{}, nil),
		Export:      handlers.NewExportHandler(svc, nil),
		Recalculate: handlers.NewTriggerRecalculateHandler(nopRunner{}, nil),
	}, nil)
}

func TestRoutes(t *testing.T) {
	router := newTestRouter()
	cases := []struct {
		method, path string
		user         bool
		status       int
		contains     string
	}{
		{http.MethodGet, "/healthz", false, http.StatusOK, `"ok"`},
		{http.MethodGet, "/api/prompts/stats", false, http.StatusOK, `"total":7`},
		{http.MethodGet, "/api/prompts/3", false, http.StatusNotFound, `"NOT_FOUND"`},
		{http.MethodGet, "/api/prompts/number/12", false, http.StatusOK, `"promptNumber":12`},
		{http.MethodPost, "/api/prompts/3/analyze", false, http.StatusOK, `"promptId":3`},
		{http.MethodGet, "/api/prompts/3/analyze", false, http.StatusMethodNotAllowed, ""},
		{http.MethodGet, "/api/my-prompts/5/versions", true, http.StatusOK, `"versions"`},
		{http.MethodGet, "/api/favorites", true, http.StatusOK, `"prompts"`},
		{http.MethodGet, "/manual-recalculate", false, http.StatusOK, `"running":false`},
		{http.MethodGet, "/export", false, http.StatusOK, ""},
		{http.MethodGet, "/api/reports/2025/01/01/x.json", false, http.StatusNotFound, ""},
		{http.MethodGet, "/nowhere", false, http.StatusNotFound, ""},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.user {
				req.Header.Set(handlers.UserIDHeader, "10")
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.contains != "" {
				assert.Contains(t, rec.Body.String(), tc.contains)
			}
		})
	}
}

func TestSetupRouterRequiresHandlers(t *testing.T) {
	assert.Panics(t, func() { SetupRouter(Handlers{}, nil) })
}
