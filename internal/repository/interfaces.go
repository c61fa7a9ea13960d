// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/kurosuke/check-pages/internal/model"
)

// ResourceRepository は監視対象URLの永続化インターフェース。
// レコードの作成・削除は外部のCRUDレイヤーが所有しており、
// エンジンは読み取りとチェック結果の反映のみを行う。
type ResourceRepository interface {
	// ListActive はactiveな監視対象URLを全件取得する。
	ListActive(ctx context.Context) ([]*model.MonitoredResource, error)

	// FindByID は指定IDの監視対象URLを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.MonitoredResource, error)

	// UpdateAfterCheck はチェック試行後のリソース状態を更新する。
	// last_checked_atは常に更新し、itemが非nilの場合のみ
	// latest_item_idとlatest_item_published_atを更新する。
	UpdateAfterCheck(ctx context.Context, id string, checkedAt time.Time, item *model.ExtractedItem) error
}

// CheckRepository はチェック結果ログの永続化インターフェース。
// checksテーブルは追記専用であり、エンジンからの更新・削除は行わない。
type CheckRepository interface {
	// Append はチェック結果を1件追記する。
	Append(ctx context.Context, record *model.CheckRecord) error

	// LatestFingerprint は指定リソースの直近の非エラーチェック
	// （status ok または changed）のcontent_hashを返す。
	// 該当レコードが存在しない場合は空文字列を返す。
	// HTMLエクストラクタの比較基準の取得にのみ使用する。
	LatestFingerprint(ctx context.Context, resourceID string) (string, error)
}
