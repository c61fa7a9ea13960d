package model

import "time"

// CheckStatus はチェック結果のステータスを表す。
type CheckStatus string

const (
	// CheckStatusOK は変更なし（または初回観測）。
	CheckStatusOK CheckStatus = "ok"
	// CheckStatusChanged は更新検知。
	CheckStatusChanged CheckStatus = "changed"
	// CheckStatusError はフェッチ・パース失敗。
	CheckStatusError CheckStatus = "error"
)

// CheckRecord は1回のチェック試行の観測結果を表す。
// 追記専用であり、エンジンは作成後に更新・削除しない。
type CheckRecord struct {
	ID              string
	ResourceID      string
	StartedAt       time.Time
	FinishedAt      time.Time
	Status          CheckStatus
	HTTPStatus      *int
	ResponseMs      *int64
	ContentHash     string
	ItemID          string
	ItemPublishedAt *time.Time
	ErrorMessage    string
}

// ExtractedItem はフィード・APIから抽出した最新アイテムを表す。
// 比較処理にのみ使用し、そのままでは永続化しない
// （識別子と公開日時はCheckRecordとMonitoredResourceに転記される）。
type ExtractedItem struct {
	ID          string
	Title       string
	Link        string
	PublishedAt *time.Time
}
