package web

import (
	"log"
	"net/http"
	"time"

	"PromptStudio-admin/internal/logger"
	"PromptStudio-admin/internal/web/handlers"
)

// Handlers 路由所需的處理器。Reports 為 nil 時不提供報告下載。
type Handlers struct {
	Evaluation  *handlers.EvaluationHandler
	Prompts     *handlers.PromptHandler
	UserPrompts *handlers.UserPromptHandler
	Export      http.Handler
	Recalculate http.Handler
	Reports     http.Handler
}

// SetupRouter 註冊所有 API 路由 (Go 1.22 的 method + wildcard pattern)
func SetupRouter(h Handlers, l *logger.Logger) http.Handler {
	if h.Evaluation == nil || h.Prompts == nil || h.UserPrompts == nil || h.Export == nil || h.Recalculate == nil {
		log.Panicln("SetupRouter：處理器不得為空")
	}
	if l == nil {
		l = logger.Nop()
	}
	mux := http.NewServeMux()

	// 評分、優化與變體
	mux.HandleFunc("POST /api/validate", h.Evaluation.Validate)
	mux.HandleFunc("POST /api/validate/batch", h.Evaluation.ValidateBatch)
	mux.HandleFunc("POST /api/prompts/{id}/analyze", h.Evaluation.Analyze)
	mux.HandleFunc("POST /api/prompts/{id}/optimize", h.Evaluation.Optimize)
	mux.HandleFunc("POST /api/prompts/{id}/variations", h.Evaluation.Variations)

	// 目錄
	mux.HandleFunc("GET /api/prompts", h.Prompts.List)
	mux.HandleFunc("GET /api/prompts/stats", h.Prompts.Stats)
	mux.HandleFunc("GET /api/prompts/{id}", h.Prompts.Get)
	mux.HandleFunc("GET /api/prompts/number/{number}", h.Prompts.GetByNumber)

	// 收藏
	mux.HandleFunc("GET /api/favorites", h.Prompts.Favorites)
	mux.HandleFunc("POST /api/favorites", h.Prompts.AddFavorite)
	mux.HandleFunc("DELETE /api/favorites/{promptId}", h.Prompts.RemoveFavorite)

	// 我的提示詞
	mux.HandleFunc("GET /api/my-prompts", h.UserPrompts.List)
	mux.HandleFunc("POST /api/my-prompts", h.UserPrompts.Create)
	mux.HandleFunc("GET /api/my-prompts/{id}", h.UserPrompts.Get)
	mux.HandleFunc("PUT /api/my-prompts/{id}", h.UserPrompts.Update)
	mux.HandleFunc("DELETE /api/my-prompts/{id}", h.UserPrompts.Delete)
	mux.HandleFunc("GET /api/my-prompts/{id}/versions", h.UserPrompts.Versions)

	mux.Handle("/manual-recalculate", h.Recalculate)
	mux.Handle("GET /export", h.Export)
	if h.Reports != nil {
		mux.Handle("GET /api/reports/{path...}", h.Reports)
	}
	mux.HandleFunc("GET /healthz", handlers.Healthz)

	l.Info("HTTP 路由設定完成")
	return accessLog(mux, l.With("component", "http"))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// accessLog 每個請求記錄一行，/healthz 除外
func accessLog(next http.Handler, l *logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		l.Info("HTTP 請求", "method", r.Method, "path", r.URL.Path, "status", rec.status,
			"elapsed", time.Since(started).String(), "remote", r.RemoteAddr)
	})
}
