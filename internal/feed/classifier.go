// Package feed は監視対象URLのソース分類を提供する。
// URLからフェッチ戦略（構造化API / シンジケーションフィード / HTML）と
// 実際にフェッチするエンドポイントを決定する。
package feed

import (
	"fmt"
	"regexp"
	"strings"
)

// Class はソースの分類（フェッチ戦略のバケット）を表す。
type Class string

const (
	// ClassStructuredAPI は構造化API（なろう小説API）によるチェック。
	ClassStructuredAPI Class = "structured-api"
	// ClassSyndicationFeed はRSS/Atomフィードによるチェック。
	ClassSyndicationFeed Class = "syndication-feed"
	// ClassHTML はHTMLスクレイピングによるチェック。
	ClassHTML Class = "html"
)

// Descriptor は分類結果を表す。毎回のチェックでURLから再計算され、永続化しない。
type Descriptor struct {
	Class Class
	// EndpointURL は実際にフェッチするURL。
	// APIラッパーやミラーフィードの場合は監視対象URL自体と異なる。
	EndpointURL string
	// NCode はなろう小説のNコード（構造化APIの場合のみ）。
	NCode string
	// FallbackToHTML はフィード取得失敗時にHTMLチェックへフォールバックするか。
	// 不安定な第三者ミラー経由のフィード（カクヨム）の場合にtrue。
	FallbackToHTML bool
}

// narouAPIEndpoint はなろう小説APIのエンドポイントテンプレート。
const narouAPIEndpoint = "https://api.syosetu.com/novelapi/api/?out=json&ncode=%s"

// kakuyomuFeedEndpoint はカクヨムのエピソード更新フィードのテンプレート。
// 公式サイトはRSSを公開していないため、RSSHubの互換フィードを使用する。
const kakuyomuFeedEndpoint = "https://rsshub.app/kakuyomu/episode/%s"

var (
	// narouPattern はなろう小説の作品ページURL（ncode.syosetu.com/<ncode>）。
	narouPattern = regexp.MustCompile(`(?i)^https?://ncode\.syosetu\.com/([^/]+)/?$`)
	// kakuyomuPattern はカクヨムの作品ページURL（kakuyomu.jp/works/<数値ID>）。
	kakuyomuPattern = regexp.MustCompile(`(?i)^https?://kakuyomu\.jp/works/(\d+)/?$`)
)

// feedSuffixes はURL自体がフィードであることを示すサフィックス。
var feedSuffixes = []string{"/rss", "/rss/", ".rss", "/feed"}

// Classify はURLを分類してDescriptorを返す。
// 純粋関数でありI/Oを行わない。どのパターンにも一致しないURLは
// HTMLクラスにフォールスルーするため、失敗しない。
func Classify(rawURL string) Descriptor {
	if m := narouPattern.FindStringSubmatch(rawURL); m != nil {
		ncode := strings.ToLower(m[1])
		return Descriptor{
			Class:       ClassStructuredAPI,
			EndpointURL: fmt.Sprintf(narouAPIEndpoint, ncode),
			NCode:       ncode,
		}
	}

	if m := kakuyomuPattern.FindStringSubmatch(rawURL); m != nil {
		return Descriptor{
			Class:          ClassSyndicationFeed,
			EndpointURL:    fmt.Sprintf(kakuyomuFeedEndpoint, m[1]),
			FallbackToHTML: true,
		}
	}

	for _, suffix := range feedSuffixes {
		if strings.HasSuffix(rawURL, suffix) {
			return Descriptor{
				Class:       ClassSyndicationFeed,
				EndpointURL: rawURL,
			}
		}
	}

	return Descriptor{
		Class:       ClassHTML,
		EndpointURL: rawURL,
	}
}
