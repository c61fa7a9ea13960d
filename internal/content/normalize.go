// Package content はHTML正規化とフィンガープリント計算を提供する。
// 広告・閲覧カウンタ・相対時刻などの揮発的な部分文字列を除去し、
// 実質的に同一のページが同一のハッシュになるようにする。
package content

import (
	"regexp"
	"strings"
)

// ブロックごと除去するタグ（タグ+内容）。
var (
	scriptPattern   = regexp.MustCompile(`(?is)<script\b.*?</script\s*>`)
	stylePattern    = regexp.MustCompile(`(?is)<style\b.*?</style\s*>`)
	noscriptPattern = regexp.MustCompile(`(?is)<noscript\b.*?</noscript\s*>`)
	insPattern      = regexp.MustCompile(`(?is)<ins\b.*?</ins\s*>`)
	iframePattern   = regexp.MustCompile(`(?is)<iframe\b.*?</iframe\s*>`)
	commentPattern  = regexp.MustCompile(`(?s)<!--.*?-->`)
)

// customAdTagPattern は広告用カスタム要素の開始タグ
// （amp-ad、adsbygoogle系のようなハイフン区切りのタグ名）。
var customAdTagPattern = regexp.MustCompile(`(?i)<([a-z][a-z0-9]*-(?:ad|ads|advert)(?:-[a-z0-9]+)*)\b[^>]*>`)

// adKeywordTagPattern はclass/id属性に広告・トラッキング系キーワードを含む開始タグ。
var adKeywordTagPattern = regexp.MustCompile(`(?i)<([a-z][a-z0-9]*)\b[^>]*\b(?:class|id)\s*=\s*["'][^"']*(?:ad-|ads-|advert|sponsor|tracking|analytics|gtm-|ga-)[^"']*["'][^>]*>`)

// tagPattern は残りの全タグ。1タグを1つの空白に置換する。
var tagPattern = regexp.MustCompile(`<[^>]+>`)

// entityReplacer は一般的なHTMLエンティティの復号。
var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
)

// numericRefPattern は数値文字参照。内容を復元せずに除去する。
var numericRefPattern = regexp.MustCompile(`&#x?[0-9a-fA-F]+;`)

// volatilePatterns は内容と無関係に変動するテキストパターン。
// 日時リテラル、相対時刻、閲覧カウンタ、ランキング順位、
// セッション・キャッシュ系の長い16進トークン、トラッキング用クエリパラメータ。
var volatilePatterns = []*regexp.Regexp{
	// 日付リテラル（和暦区切り・スラッシュ・ハイフン）
	regexp.MustCompile(`\d{4}年\s?\d{1,2}月\s?\d{1,2}日`),
	regexp.MustCompile(`\d{4}[/-]\d{1,2}[/-]\d{1,2}`),
	regexp.MustCompile(`(?i)\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4}\b`),
	// 時刻リテラル
	regexp.MustCompile(`\d{1,2}:\d{2}(?::\d{2})?`),
	// 相対時刻
	regexp.MustCompile(`\d+\s*(?:秒|分|時間|日|週間|ヶ月|か月|年)前`),
	regexp.MustCompile(`(?i)\b\d+\s*(?:second|minute|hour|day|week|month|year)s?\s+ago\b`),
	// 閲覧・アクセスカウンタ
	regexp.MustCompile(`(?i)\d[\d,]*\s*(?:views?|pv|hits?)\b`),
	regexp.MustCompile(`\d[\d,]*\s*(?:回再生|回視聴|アクセス|閲覧|ビュー)`),
	// ランキング順位
	regexp.MustCompile(`第?\s?\d+\s?位`),
	regexp.MustCompile(`(?i)\b(?:no\.|rank(?:ed)?\s*#?)\s*\d+\b`),
	// セッション・キャッシュ系の長い16進トークン
	regexp.MustCompile(`(?i)\b[0-9a-f]{16,}\b`),
	// トラッキング・キャッシュバスティング用クエリパラメータ
	regexp.MustCompile(`(?i)[?&](?:utm_[a-z]+|fbclid|gclid|yclid|_ga|cb|cachebuster|_ts)=[^\s"'&<>]*`),
}

// whitespacePattern は連続する空白文字。
var whitespacePattern = regexp.MustCompile(`\s+`)

// Normalize は生HTMLから揮発的な部分を取り除いたテキストを返す。
// 決定的・全域的であり、不正なマークアップに対しても失敗しない
// （最悪の場合は除去漏れが残るだけで、誤検知「changed」のリスクに留まる）。
// エンティティ復号でタグや別のエンティティが再出現するケースがあるため、
// 出力が変化しなくなる（不動点に達する）までパイプラインを繰り返す。
// 変化するパスは必ず文字列を短縮するためループは停止し、結果は冪等になる。
func Normalize(rawHTML string) string {
	result := rawHTML
	for {
		next := normalizeOnce(result)
		if next == result {
			return result
		}
		result = next
	}
}

// normalizeOnce は正規化パイプラインを1回適用する。
// 各ステップは前ステップの出力に対して順に動作する。
func normalizeOnce(s string) string {
	// 1. script/style/noscriptブロックの除去
	s = scriptPattern.ReplaceAllString(s, "")
	s = stylePattern.ReplaceAllString(s, "")
	s = noscriptPattern.ReplaceAllString(s, "")

	// 2. 広告・埋め込みブロックとコメントの除去
	s = insPattern.ReplaceAllString(s, "")
	s = iframePattern.ReplaceAllString(s, "")
	s = removeMatchedElements(s, customAdTagPattern)
	s = commentPattern.ReplaceAllString(s, "")

	// 3. class/idに広告系キーワードを含む要素の除去（ベストエフォート）
	s = removeMatchedElements(s, adKeywordTagPattern)

	// 4. 残りの全タグを空白1つに置換
	s = tagPattern.ReplaceAllString(s, " ")

	// 5. エンティティの復号と数値文字参照の除去
	s = entityReplacer.Replace(s)
	s = numericRefPattern.ReplaceAllString(s, "")

	// 6. 揮発的なテキストパターンの除去
	for _, p := range volatilePatterns {
		s = p.ReplaceAllString(s, " ")
	}

	// 7. 空白の折りたたみとトリム
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// removeMatchedElements はopenPatternに一致する開始タグから
// 対応する終了タグまでを除去する。終了タグが見つからない場合は
// 開始タグのみを除去する。入れ子の同名タグは考慮しない（ベストエフォート）。
// openPatternのグループ1はタグ名をキャプチャしている必要がある。
func removeMatchedElements(s string, openPattern *regexp.Regexp) string {
	// 除去のたびにオフセットがずれるため、都度先頭から探し直す。
	// 1回の呼び出しでの反復回数は暴走防止のため上限を設ける。
	const maxRemovals = 200
	for i := 0; i < maxRemovals; i++ {
		loc := openPattern.FindStringSubmatchIndex(s)
		if loc == nil {
			return s
		}
		openStart, openEnd := loc[0], loc[1]
		tagName := strings.ToLower(s[loc[2]:loc[3]])

		closeTag := "</" + tagName
		rest := strings.ToLower(s[openEnd:])
		closeIdx := strings.Index(rest, closeTag)
		if closeIdx < 0 {
			// 終了タグなし: 開始タグのみ除去
			s = s[:openStart] + " " + s[openEnd:]
			continue
		}
		closeEnd := openEnd + closeIdx + len(closeTag)
		// "</tag" の後の ">" まで読み飛ばす
		if gt := strings.IndexByte(s[closeEnd:], '>'); gt >= 0 {
			closeEnd += gt + 1
		}
		s = s[:openStart] + " " + s[closeEnd:]
	}
	return s
}
