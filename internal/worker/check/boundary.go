package check

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kurosuke/check-pages/internal/security"
)

// browserUserAgent は全アウトバウンドフェッチで送信するUser-Agent。
// なろうAPI・一般サイトともにボット系UAを弾くことがあるため、
// 実ブラウザ相当の値を使用する。
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// 分類ごとのAcceptヘッダ。
const (
	acceptJSON = "application/json, */*"
	acceptFeed = "application/rss+xml, application/xml, text/xml, */*"
	acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
)

// FetchResult は1回のフェッチの結果を表す。
// 非2xxステータスもエラーではなく結果として返す（分類は呼び出し元の責務）。
type FetchResult struct {
	StatusCode int
	Body       []byte
	ElapsedMs  int64
}

// Fetcher は全エクストラクタが共有するタイムアウト付きフェッチプリミティブ。
// 汎用HTTPクライアントではなく、単発GETのみを提供する。
type Fetcher struct {
	guard       security.FetchGuardService
	timeout     time.Duration
	maxBodySize int64
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
func NewFetcher(guard security.FetchGuardService, timeout time.Duration, maxBodySize int64) *Fetcher {
	return &Fetcher{
		guard:       guard,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// Get は単発のGETリクエストを実行する。
// リダイレクトは追従し、タイムアウトを超えたリクエストは中断される。
// トランスポートエラー（DNS失敗・接続拒否・タイムアウト）の場合のみ
// エラーを返し、HTTPステータスによる失敗はFetchResultとして返す。
func (f *Fetcher) Get(ctx context.Context, rawURL, accept string) (*FetchResult, error) {
	if err := f.guard.ValidateURL(rawURL); err != nil {
		return nil, fmt.Errorf("URL検証に失敗しました: %w", err)
	}

	client := f.guard.NewSafeClient(f.timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "ja,en-US;q=0.7,en;q=0.3")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("フェッチに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("レスポンスの読み取りに失敗しました: %w", err)
	}

	return &FetchResult{
		StatusCode: resp.StatusCode,
		Body:       body,
		ElapsedMs:  elapsed,
	}, nil
}
