package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// 呼び出し元（ダッシュボード・スケジューラ）に返す原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, resource, system
	Action   string // 呼び出し元向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeResourceNotFound = "RESOURCE_NOT_FOUND"
	ErrCodeResourceInactive = "RESOURCE_INACTIVE"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeFetchFailed      = "FETCH_FAILED"
	ErrCodeParseFailed      = "PARSE_FAILED"
)

// NewResourceNotFoundError は監視対象URLが見つからない場合のエラーを生成する。
func NewResourceNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeResourceNotFound,
		Message:  fmt.Sprintf("指定された監視対象URLが見つかりません: %s", id),
		Category: "resource",
		Action:   "URLのIDを確認してください。",
	}
}

// NewResourceInactiveError は監視対象URLが無効化されている場合のエラーを生成する。
func NewResourceInactiveError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeResourceInactive,
		Message:  fmt.Sprintf("指定された監視対象URLは無効化されています: %s", id),
		Category: "resource",
		Action:   "URLを有効化してから再度チェックを実行してください。",
	}
}

// NewInvalidRequestError は不正なリクエストのエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("不正なリクエストです: %s", reason),
		Category: "validation",
		Action:   "リクエストパラメータを確認してください。",
	}
}
