package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"

	"PromptStudio-admin/internal/apperr"
	"PromptStudio-admin/internal/logger"
	"PromptStudio-admin/internal/models"
)

// Catalog 目錄查詢與收藏
type Catalog interface {
	List(ctx context.Context, filter models.PromptFilter) ([]models.Prompt, error)
	Get(ctx context.Context, id int64) (*models.Prompt, error)
	GetByNumber(ctx context.Context, number int) (*models.Prompt, error)
	GetByNumbers(ctx context.Context, numbers []int) ([]models.Prompt, error)
	Stats(ctx context.Context) (*models.CatalogStats, error)
	AddFavorite(ctx context.Context, userID, promptID int64) error
	RemoveFavorite(ctx context.Context, userID, promptID int64) error
	Favorites(ctx context.Context, userID int64) ([]models.Prompt, error)
}

// PromptHandler 目錄與收藏 API
type PromptHandler struct {
	catalog Catalog
	log     *logger.Logger
}

func NewPromptHandler(c Catalog, l *logger.Logger) *PromptHandler {
	if c == nil {
		log.Panicln("PromptHandler：Catalog 不得為空")
	}
	return &PromptHandler{catalog: c, log: handlerLogger(l, "PromptHandler")}
}

// filterFromQuery 讀取 search、industrySector、visualStyle、scenarioType
func filterFromQuery(r *http.Request) models.PromptFilter {
	q := r.URL.Query()
	return models.PromptFilter{
		Search:         q.Get("search"),
		IndustrySector: q.Get("industrySector"),
		VisualStyle:    q.Get("visualStyle"),
		ScenarioType:   q.Get("scenarioType"),
	}
}

// parseNumbers 解析 numbers=1,2,3
func parseNumbers(raw string) ([]int, error) {
	var numbers []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, apperr.Invalid("invalid prompt number %q", part)
		}
		numbers = append(numbers, n)
	}
	if len(numbers) == 0 {
		return nil, apperr.Invalid("numbers must not be empty")
	}
	return numbers, nil
}

// List GET /api/prompts，帶 numbers 時依序號批次查詢
func (h *PromptHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		prompts []models.Prompt
		err     error
	)
	if raw, ok := r.URL.Query()["numbers"]; ok {
		var numbers []int
		if numbers, err = parseNumbers(strings.Join(raw, ",")); err == nil {
			prompts, err = h.catalog.GetByNumbers(r.Context(), numbers)
		}
	} else {
		prompts, err = h.catalog.List(r.Context(), filterFromQuery(r))
	}
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prompts": prompts, "total": len(prompts)})
}

// Get GET /api/prompts/{id}
func (h *PromptHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	p, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetByNumber GET /api/prompts/number/{number}
func (h *PromptHandler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	n, err := pathID(r, "number")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	p, err := h.catalog.GetByNumber(r.Context(), int(n))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Stats GET /api/prompts/stats
func (h *PromptHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.catalog.Stats(r.Context())
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Favorites GET /api/favorites
func (h *PromptHandler) Favorites(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	prompts, err := h.catalog.Favorites(r.Context(), uid)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prompts": prompts, "total": len(prompts)})
}

// AddFavorite POST /api/favorites {"promptId": n}
func (h *PromptHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	var body struct {
		PromptID int64 `json:"promptId"`
	}
	if err := decodeJSON(w, r, &body, false); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	if body.PromptID <= 0 {
		writeError(w, h.log, r, apperr.Invalid("promptId is required"))
		return
	}
	if err := h.catalog.AddFavorite(r.Context(), uid, body.PromptID); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"promptId": body.PromptID, "favorite": true})
}

// RemoveFavorite DELETE /api/favorites/{promptId}
func (h *PromptHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	id, err := pathID(r, "promptId")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	if err := h.catalog.RemoveFavorite(r.Context(), uid, id); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
