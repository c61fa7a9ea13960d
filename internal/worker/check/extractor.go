// Package check はコンテンツ更新チェックのコア処理を提供する。
// ソース分類ごとのエクストラクタ、HTTPリクエスト境界、
// チェック全体を統括するオーケストレータを含む。
package check

import (
	"context"
	"time"

	"github.com/kurosuke/check-pages/internal/feed"
	"github.com/kurosuke/check-pages/internal/model"
)

// Outcome は1回の抽出試行の結果を表す。
// 永続化はオーケストレータの責務であり、エクストラクタは行わない。
// StartedAtは試行の実開始時刻で、オーケストレータが抽出の起動時に設定する。
type Outcome struct {
	StartedAt    time.Time
	Status       model.CheckStatus
	HTTPStatus   *int
	ResponseMs   *int64
	ContentHash  string
	Item         *model.ExtractedItem
	ErrorMessage string
}

// Extractor はソース分類ごとの抽出戦略のインターフェース。
// 各実装はフェッチ・パース・変更判定までを独立して行う。
type Extractor interface {
	// Extract はdescriptorのエンドポイントをフェッチし、
	// リソースの前回状態と比較してチェック結果を返す。
	// 失敗はOutcome.Status=errorとして返し、エラーを伝播させない。
	Extract(ctx context.Context, resource *model.MonitoredResource, desc feed.Descriptor) Outcome
}

// errorOutcome はエラー結果のOutcomeを生成する。
// エラーレコードはアイテム識別子もハッシュも持たない
// （次回チェックが前回の識別子と比較できるようにするため）。
func errorOutcome(httpStatus *int, responseMs *int64, message string) Outcome {
	return Outcome{
		Status:       model.CheckStatusError,
		HTTPStatus:   httpStatus,
		ResponseMs:   responseMs,
		ErrorMessage: message,
	}
}

// decideByItemID はアイテム識別子の比較による変更判定を行う。
// 前回の識別子が空（初回観測）の場合は常にokを返す。
func decideByItemID(previousID, newID string) model.CheckStatus {
	if previousID != "" && previousID != newID {
		return model.CheckStatusChanged
	}
	return model.CheckStatusOK
}

// is2xx はHTTPステータスコードが成功（2xx）かを判定する。
func is2xx(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
