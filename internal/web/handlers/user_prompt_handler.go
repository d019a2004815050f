package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"PromptStudio-admin/internal/apperr"
	"PromptStudio-admin/internal/logger"
	"PromptStudio-admin/internal/models"
	"PromptStudio-admin/internal/services"
)

// UserPrompts 「我的提示詞」操作
type UserPrompts interface {
	Save(ctx context.Context, userID int64, in services.SaveInput) (*models.UserPrompt, error)
	List(ctx context.Context, userID int64, folderID *int64) ([]models.UserPrompt, error)
	Get(ctx context.Context, userID, id int64) (*models.UserPrompt, error)
	Update(ctx context.Context, userID, id int64, in services.UpdateInput) (*models.UserPrompt, error)
	Delete(ctx context.Context, userID, id int64) error
	Versions(ctx context.Context, userID, id int64) ([]models.PromptVersion, error)
}

// UserPromptHandler /api/my-prompts 系列 API，所有請求都需要 X-User-ID
type UserPromptHandler struct {
	prompts UserPrompts
	log     *logger.Logger
}

func NewUserPromptHandler(p UserPrompts, l *logger.Logger) *UserPromptHandler {
	if p == nil {
		log.Panicln("UserPromptHandler：UserPrompts 不得為空")
	}
	return &UserPromptHandler{prompts: p, log: handlerLogger(l, "UserPromptHandler")}
}

// ownerAndID 讀取使用者與路徑中的 id
func (h *UserPromptHandler) ownerAndID(r *http.Request) (int64, int64, error) {
	uid, err := userID(r)
	if err != nil {
		return 0, 0, err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return 0, 0, err
	}
	return uid, id, nil
}

// List GET /api/my-prompts?folderId=
func (h *UserPromptHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	var folderID *int64
	if raw := r.URL.Query().Get("folderId"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, h.log, r, apperr.Invalid("folderId must be an integer, got %q", raw))
			return
		}
		folderID = &v
	}
	prompts, err := h.prompts.List(r.Context(), uid, folderID)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prompts": prompts, "total": len(prompts)})
}

// Create POST /api/my-prompts
func (h *UserPromptHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	var in services.SaveInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	up, err := h.prompts.Save(r.Context(), uid, in)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, up)
}

// Get GET /api/my-prompts/{id}
func (h *UserPromptHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, id, err := h.ownerAndID(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	up, err := h.prompts.Get(r.Context(), uid, id)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, up)
}

// Update PUT /api/my-prompts/{id}
func (h *UserPromptHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, id, err := h.ownerAndID(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	var in services.UpdateInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	up, err := h.prompts.Update(r.Context(), uid, id, in)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, up)
}

// Delete DELETE /api/my-prompts/{id}
func (h *UserPromptHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, id, err := h.ownerAndID(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	if err := h.prompts.Delete(r.Context(), uid, id); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Versions GET /api/my-prompts/{id}/versions
func (h *UserPromptHandler) Versions(w http.ResponseWriter, r *http.Request) {
	uid, id, err := h.ownerAndID(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	versions, err := h.prompts.Versions(r.Context(), uid, id)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": versions, "total": len(versions)})
}
