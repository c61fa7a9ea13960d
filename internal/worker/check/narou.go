package check

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kurosuke/check-pages/internal/content"
	"github.com/kurosuke/check-pages/internal/feed"
	"github.com/kurosuke/check-pages/internal/model"
)

// jst はなろう小説APIのdatetimeフィールドのタイムゾーン（固定UTC+9）。
var jst = time.FixedZone("JST", 9*60*60)

// narouLastupLayout はgeneral_lastupフィールドの書式。
const narouLastupLayout = "2006-01-02 15:04:05"

// narouNovel はなろう小説APIレスポンスのうちチェックに必要なフィールド。
type narouNovel struct {
	NCode         string `json:"ncode"`
	GeneralAllNo  int    `json:"general_all_no"`
	GeneralLastup string `json:"general_lastup"`
}

// NarouExtractor は構造化API（なろう小説API）によるエクストラクタ。
// APIのJSON配列の2番目の要素が作品レコードであり、
// Nコードと総エピソード数の組み合わせをアイテム識別子として使用する。
type NarouExtractor struct {
	fetcher *Fetcher
	logger  *slog.Logger
}

// NewNarouExtractor はNarouExtractorの新しいインスタンスを生成する。
func NewNarouExtractor(fetcher *Fetcher, logger *slog.Logger) *NarouExtractor {
	return &NarouExtractor{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Extract はなろう小説APIをフェッチしてエピソード数の変化を判定する。
func (e *NarouExtractor) Extract(ctx context.Context, resource *model.MonitoredResource, desc feed.Descriptor) Outcome {
	result, err := e.fetcher.Get(ctx, desc.EndpointURL, acceptJSON)
	if err != nil {
		return errorOutcome(nil, nil, fmt.Sprintf("なろうAPIの取得に失敗しました: %v", err))
	}

	httpStatus := result.StatusCode
	responseMs := result.ElapsedMs

	if !is2xx(httpStatus) {
		return errorOutcome(&httpStatus, &responseMs, fmt.Sprintf("HTTP %d", httpStatus))
	}

	// APIレスポンスは配列: 先頭要素がallcount、2番目以降が作品レコード
	var elements []json.RawMessage
	if err := json.Unmarshal(result.Body, &elements); err != nil {
		return errorOutcome(&httpStatus, &responseMs, fmt.Sprintf("なろうAPIレスポンスのパースに失敗しました: %v", err))
	}
	if len(elements) < 2 {
		return errorOutcome(&httpStatus, &responseMs, "なろうAPIに作品が見つかりません")
	}

	var novel narouNovel
	if err := json.Unmarshal(elements[1], &novel); err != nil {
		return errorOutcome(&httpStatus, &responseMs, fmt.Sprintf("作品レコードのパースに失敗しました: %v", err))
	}

	itemID := fmt.Sprintf("%s-%d", novel.NCode, novel.GeneralAllNo)
	publishedAt := parseNarouLastup(novel.GeneralLastup)
	status := decideByItemID(resource.LatestItemID, itemID)

	if status == model.CheckStatusChanged {
		e.logger.Info("新しいエピソードを検知しました",
			slog.String("url_id", resource.ID),
			slog.String("previous_item_id", resource.LatestItemID),
			slog.String("new_item_id", itemID),
		)
	}

	return Outcome{
		Status:     status,
		HTTPStatus: &httpStatus,
		ResponseMs: &responseMs,
		// 生ペイロードのハッシュ。変更判定には使わず参考情報として記録する。
		ContentHash: content.Fingerprint(string(result.Body)),
		Item: &model.ExtractedItem{
			ID:          itemID,
			PublishedAt: publishedAt,
		},
	}
}

// parseNarouLastup は"YYYY-MM-DD HH:MM:SS"形式（JST）の日時をパースする。
// パースできない場合はnilを返す（公開日時は欠損可）。
func parseNarouLastup(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation(narouLastupLayout, s, jst)
	if err != nil {
		return nil
	}
	return &t
}
