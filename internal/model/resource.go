// Package model はドメインモデルを定義する。
package model

import "time"

// MonitoredResource は監視対象URLを表す。
// レコードの所有者は外部のCRUDレイヤーであり、エンジンは
// last_checked_at / latest_item_id / latest_item_published_at のみを更新する。
type MonitoredResource struct {
	ID                    string
	ProjectID             string
	URL                   string
	Active                bool
	CheckIntervalMinutes  int
	LastCheckedAt         *time.Time
	LatestItemID          string
	LatestItemPublishedAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// DefaultCheckIntervalMinutes はcheck_interval_minutesが未設定の場合の間隔（1日）。
const DefaultCheckIntervalMinutes = 1440

// IsDue はチェック間隔が経過しているかを判定する。
// 一度もチェックされていないリソースは常にdueとして扱う。
func (r *MonitoredResource) IsDue(now time.Time) bool {
	if r.LastCheckedAt == nil {
		return true
	}
	interval := r.CheckIntervalMinutes
	if interval <= 0 {
		interval = DefaultCheckIntervalMinutes
	}
	dueAt := r.LastCheckedAt.Add(time.Duration(interval) * time.Minute)
	return !dueAt.After(now)
}
