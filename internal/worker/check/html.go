package check

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/kurosuke/check-pages/internal/content"
	"github.com/kurosuke/check-pages/internal/feed"
	"github.com/kurosuke/check-pages/internal/model"
	"github.com/kurosuke/check-pages/internal/repository"
)

// HTMLExtractor はHTMLスクレイピングによるエクストラクタ。
// ページを正規化したテキストのフィンガープリントを、
// 直近の非エラーチェックのフィンガープリントと比較する。
// フィードもAPIも持たないソースのデフォルト戦略。
type HTMLExtractor struct {
	fetcher *Fetcher
	checks  repository.CheckRepository
	logger  *slog.Logger
}

// NewHTMLExtractor はHTMLExtractorの新しいインスタンスを生成する。
func NewHTMLExtractor(fetcher *Fetcher, checks repository.CheckRepository, logger *slog.Logger) *HTMLExtractor {
	return &HTMLExtractor{
		fetcher: fetcher,
		checks:  checks,
		logger:  logger,
	}
}

// Extract はページをフェッチし、正規化済みコンテンツのハッシュ比較で変更を判定する。
// 比較基準が存在しない初回観測は常にokとなる。
func (e *HTMLExtractor) Extract(ctx context.Context, resource *model.MonitoredResource, desc feed.Descriptor) Outcome {
	result, err := e.fetcher.Get(ctx, desc.EndpointURL, acceptHTML)
	if err != nil {
		return errorOutcome(nil, nil, fmt.Sprintf("ページの取得に失敗しました: %v", err))
	}

	httpStatus := result.StatusCode
	responseMs := result.ElapsedMs

	if !is2xx(httpStatus) {
		return errorOutcome(&httpStatus, &responseMs, fmt.Sprintf("HTTP %d", httpStatus))
	}

	normalized := content.Normalize(string(result.Body))
	hash := content.Fingerprint(normalized)

	// 比較基準は直近の非エラーチェックのハッシュ。
	// エラーレコードはハッシュを持たないため読み飛ばされる。
	baseline, err := e.checks.LatestFingerprint(ctx, resource.ID)
	if err != nil {
		return errorOutcome(&httpStatus, &responseMs, fmt.Sprintf("比較基準の取得に失敗しました: %v", err))
	}

	status := model.CheckStatusOK
	if baseline != "" && baseline != hash {
		status = model.CheckStatusChanged
		e.logger.Info("コンテンツの変更を検知しました",
			slog.String("url_id", resource.ID),
			slog.String("url", desc.EndpointURL),
			slog.String("page_title", pageTitle(result.Body)),
		)
	}

	return Outcome{
		Status:      status,
		HTTPStatus:  &httpStatus,
		ResponseMs:  &responseMs,
		ContentHash: hash,
	}
}

// pageTitle はHTMLからtitle要素のテキストを抽出する（ログ用の参考情報）。
// 不正なマークアップに対しても失敗せず、見つからない場合は空文字列を返す。
func pageTitle(body []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	inTitle := false

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if string(name) == "title" {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				return strings.TrimSpace(string(tokenizer.Text()))
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if string(name) == "title" {
				return ""
			}
		}
	}
}
