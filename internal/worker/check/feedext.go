package check

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/kurosuke/check-pages/internal/content"
	"github.com/kurosuke/check-pages/internal/feed"
	"github.com/kurosuke/check-pages/internal/model"
	"github.com/kurosuke/check-pages/internal/security"
)

// FeedExtractor はシンジケーションフィード（RSS/Atom）によるエクストラクタ。
// rsshub系の不安定な第三者ミラー経由のエンドポイントは、
// 設定されたミラーホストを順に試行し、最初に成功したものを採用する。
type FeedExtractor struct {
	fetcher     *Fetcher
	sanitizer   security.TitleSanitizerService
	mirrorHosts []string
	logger      *slog.Logger
}

// NewFeedExtractor はFeedExtractorの新しいインスタンスを生成する。
// mirrorHostsはrsshub系エンドポイントの試行順ホストリスト。
func NewFeedExtractor(fetcher *Fetcher, sanitizer security.TitleSanitizerService, mirrorHosts []string, logger *slog.Logger) *FeedExtractor {
	return &FeedExtractor{
		fetcher:     fetcher,
		sanitizer:   sanitizer,
		mirrorHosts: mirrorHosts,
		logger:      logger,
	}
}

// Extract はフィードをフェッチして最新アイテムの変化を判定する。
func (e *FeedExtractor) Extract(ctx context.Context, resource *model.MonitoredResource, desc feed.Descriptor) Outcome {
	return e.extractFromCandidates(ctx, resource, e.mirrorCandidates(desc.EndpointURL))
}

// extractFromCandidates は候補URLを順に試行し、最初に成功した
// フィードから最新アイテムの変化を判定する。
func (e *FeedExtractor) extractFromCandidates(ctx context.Context, resource *model.MonitoredResource, candidates []string) Outcome {
	var (
		httpStatus *int
		responseMs *int64
		body       []byte
		fetched    bool
		lastErr    error
	)

	for _, candidate := range candidates {
		result, err := e.fetcher.Get(ctx, candidate, acceptFeed)
		if err != nil {
			lastErr = err
			e.logger.Warn("フィードのフェッチに失敗しました",
				slog.String("url_id", resource.ID),
				slog.String("feed_url", candidate),
				slog.String("error", err.Error()),
			)
			continue
		}

		httpStatus = &result.StatusCode
		responseMs = &result.ElapsedMs

		if !is2xx(result.StatusCode) {
			lastErr = fmt.Errorf("HTTP %d", result.StatusCode)
			e.logger.Warn("フィードがエラーステータスを返しました",
				slog.String("url_id", resource.ID),
				slog.String("feed_url", candidate),
				slog.Int("http_status", result.StatusCode),
			)
			continue
		}

		body = result.Body
		fetched = true
		break // 最初の成功で打ち切る
	}

	if !fetched {
		return errorOutcome(httpStatus, responseMs, fmt.Sprintf("フィードの取得に失敗しました: %v", lastErr))
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return errorOutcome(httpStatus, responseMs, fmt.Sprintf("フィードのパースに失敗しました: %v", err))
	}
	if len(parsed.Items) == 0 {
		return errorOutcome(httpStatus, responseMs, "フィードにアイテムがありません")
	}

	first := parsed.Items[0]
	title := e.sanitizer.Sanitize(first.Title)

	// 識別子の優先順位: guid > link > title
	itemID := first.GUID
	if itemID == "" {
		itemID = first.Link
	}
	if itemID == "" {
		itemID = title
	}

	var publishedAt *time.Time
	if first.PublishedParsed != nil {
		t := *first.PublishedParsed
		publishedAt = &t
	} else if first.UpdatedParsed != nil {
		t := *first.UpdatedParsed
		publishedAt = &t
	}

	status := decideByItemID(resource.LatestItemID, itemID)
	if status == model.CheckStatusChanged {
		e.logger.Info("新しいフィードアイテムを検知しました",
			slog.String("url_id", resource.ID),
			slog.String("previous_item_id", resource.LatestItemID),
			slog.String("new_item_id", itemID),
		)
	}

	return Outcome{
		Status:     status,
		HTTPStatus: httpStatus,
		ResponseMs: responseMs,
		// 生のフィードXMLのハッシュ。変更判定には使わず参考情報として記録する。
		ContentHash: content.Fingerprint(string(body)),
		Item: &model.ExtractedItem{
			ID:          itemID,
			Title:       title,
			Link:        first.Link,
			PublishedAt: publishedAt,
		},
	}
}

// mirrorCandidates は試行するフィードURLのリストを返す。
// rsshub系ホストの場合のみ、設定されたミラーホストでホスト部を
// 差し替えたバリエーションを重複排除して返す。それ以外は入力のみ。
func (e *FeedExtractor) mirrorCandidates(endpoint string) []string {
	u, err := url.Parse(endpoint)
	if err != nil || !strings.Contains(u.Host, "rsshub.") || len(e.mirrorHosts) == 0 {
		return []string{endpoint}
	}

	seen := make(map[string]struct{}, len(e.mirrorHosts)+1)
	candidates := make([]string, 0, len(e.mirrorHosts)+1)

	add := func(s string) {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			candidates = append(candidates, s)
		}
	}

	add(endpoint)
	for _, host := range e.mirrorHosts {
		mirror := *u
		mirror.Host = host
		add(mirror.String())
	}

	return candidates
}
