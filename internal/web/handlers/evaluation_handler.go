package handlers

import (
	"context"
	"log"
	"net/http"

	"PromptStudio-admin/internal/logger"
	"PromptStudio-admin/internal/services"
)

// Evaluator 單筆與批次評分
type Evaluator interface {
	Validate(ctx context.Context, in services.ValidateInput) (*services.ValidateResult, error)
	Analyze(ctx context.Context, promptID int64, persist bool) (*services.ValidateResult, error)
	ValidateBatch(ctx context.Context, items []services.BatchItem) (*services.BatchReport, error)
}

// Optimizer 改寫並重新評分
type Optimizer interface {
	Optimize(ctx context.Context, promptID int64, apply bool) (*services.OptimizeResult, error)
}

// VariationGenerator 產生提示詞變體
type VariationGenerator interface {
	GenerateVariations(ctx context.Context, promptID int64, req services.VariationRequest) (*services.VariationsResult, error)
}

// EvaluationHandler 評分、優化與變體相關的 API
type EvaluationHandler struct {
	evaluator  Evaluator
	optimizer  Optimizer
	variations VariationGenerator
	log        *logger.Logger
}

func NewEvaluationHandler(e Evaluator, o Optimizer, v VariationGenerator, l *logger.Logger) *EvaluationHandler {
	if e == nil || o == nil || v == nil {
		log.Panicln("EvaluationHandler：Evaluator、Optimizer 與 VariationGenerator 不得為空")
	}
	return &EvaluationHandler{evaluator: e, optimizer: o, variations: v, log: handlerLogger(l, "EvaluationHandler")}
}

// Validate POST /api/validate
func (h *EvaluationHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var in services.ValidateInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	res, err := h.evaluator.Validate(r.Context(), in)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type batchRequest struct {
	Prompts []services.BatchItem `json:"prompts"`
}

// ValidateBatch POST /api/validate/batch
func (h *EvaluationHandler) ValidateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	report, err := h.evaluator.ValidateBatch(r.Context(), req.Prompts)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Analyze POST /api/prompts/{id}/analyze，body 可省略
func (h *EvaluationHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	var body struct {
		Persist bool `json:"persist"`
	}
	if err := decodeJSON(w, r, &body, true); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	res, err := h.evaluator.Analyze(r.Context(), id, body.Persist)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Optimize POST /api/prompts/{id}/optimize
func (h *EvaluationHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	var body struct {
		Apply bool `json:"apply"`
	}
	if err := decodeJSON(w, r, &body, true); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	res, err := h.optimizer.Optimize(r.Context(), id, body.Apply)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Variations POST /api/prompts/{id}/variations
func (h *EvaluationHandler) Variations(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	var req services.VariationRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	res, err := h.variations.GenerateVariations(r.Context(), id, req)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
