package code

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nevindra/codeloop"
)

const maxRequestBodyBytes = 4 << 20 // 4MB

// executeRequest is the body of POST /execute.
type executeRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// executeResponse is the body returned by POST /execute.
type executeResponse struct {
	codeloop.ExecResult
	DurationMs int64 `json:"duration_ms"`
}

// NewHandler exposes exec over HTTP:
//
//	POST /execute  {"code": "...", "language": "python"} -> ExecResult JSON
//	GET  /health
//
// At most maxConcurrent executions run at once; further requests get 503
// immediately. Failed executions are still 200: the failure is in the body.
func NewHandler(exec codeloop.Executor, maxConcurrent int, logger *slog.Logger) http.Handler {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	if logger == nil {
		logger = nopLogger
	}
	sem := make(chan struct{}, maxConcurrent)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /execute", func(w http.ResponseWriter, r *http.Request) {
		handleExecute(exec, sem, logger, w, r)
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	return mux
}

func handleExecute(exec codeloop.Executor, sem chan struct{}, logger *slog.Logger, w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req executeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	lang, err := codeloop.ParseLanguage(req.Language)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Fail fast under load.
	select {
	case sem <- struct{}{}:
		defer func() { <-sem }()
	default:
		writeError(w, http.StatusServiceUnavailable, "server busy: execution capacity reached")
		return
	}

	start := time.Now()
	res := exec.Execute(r.Context(), req.Code, lang)
	logger.Info("execute", "language", lang.String(), "ok", res.OK, "kind", res.Kind, "duration", time.Since(start))

	writeJSON(w, http.StatusOK, executeResponse{ExecResult: res, DurationMs: res.Duration.Milliseconds()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "marshal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
