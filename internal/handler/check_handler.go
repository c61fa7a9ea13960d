package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/kurosuke/check-pages/internal/model"
)

// CheckRunnerService はチェックランナーハンドラーが必要とするサービスインターフェース。
type CheckRunnerService interface {
	// Sweep はチェック対象を選出してバッチ実行し、処理件数を返す。
	Sweep(ctx context.Context, force bool) (int, error)
	// RunSingle は指定IDの監視対象URLを1件だけチェックする。
	RunSingle(ctx context.Context, id string) error
}

// CheckRunnerHandler はチェック実行起動のHTTPハンドラー。
// スケジューラやダッシュボードからのGET/POST起動を受け付ける。
type CheckRunnerHandler struct {
	service CheckRunnerService
	logger  *slog.Logger
}

// NewCheckRunnerHandler はCheckRunnerHandlerを生成する。
func NewCheckRunnerHandler(service CheckRunnerService, logger *slog.Logger) *CheckRunnerHandler {
	return &CheckRunnerHandler{
		service: service,
		logger:  logger,
	}
}

// runnerSuccessResponse はチェック実行成功時のレスポンス。
type runnerSuccessResponse struct {
	Success   bool   `json:"success"`
	Processed int    `json:"processed"`
	Timestamp string `json:"timestamp"`
}

// runnerErrorResponse はチェック実行失敗時のレスポンス。
type runnerErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// Run はチェック実行リクエストを処理する。
// GET /api/check-runner, POST /api/check-runner
//
// クエリパラメータ:
//   - force:  trueの場合、チェック間隔を無視して全リソースをチェックする
//   - url_id: 指定された場合、そのURLのみチェックする（無効化中は400、不在は404）
func (h *CheckRunnerHandler) Run(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	force := query.Get("force") == "true"
	urlID := query.Get("url_id")

	if urlID != "" {
		if err := h.service.RunSingle(r.Context(), urlID); err != nil {
			h.writeError(w, err)
			return
		}
		h.writeSuccess(w, 1)
		return
	}

	processed, err := h.service.Sweep(r.Context(), force)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w, processed)
}

// writeSuccess は処理件数を含む成功レスポンスを書き込む。
func (h *CheckRunnerHandler) writeSuccess(w http.ResponseWriter, processed int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(runnerSuccessResponse{
		Success:   true,
		Processed: processed,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// writeError はエラーレスポンスを書き込む。
// APIErrorはコードに応じたステータスに、それ以外は500にマッピングする。
func (h *CheckRunnerHandler) writeError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	message := "内部エラーが発生しました。"

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode = mapAPIErrorToHTTPStatus(apiErr)
		message = apiErr.Message
	} else {
		h.logger.Error("チェック実行リクエストの処理に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(runnerErrorResponse{
		Success:   false,
		Error:     message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeResourceNotFound:
		return http.StatusNotFound
	case model.ErrCodeResourceInactive, model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeFetchFailed:
		return http.StatusBadGateway
	case model.ErrCodeParseFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
