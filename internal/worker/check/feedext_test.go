package check

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kurosuke/check-pages/internal/feed"
	"github.com/kurosuke/check-pages/internal/model"
)

const testRSS = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>テスト作品</title>
    <item>
      <title>第5話 決戦</title>
      <link>https://example.com/episodes/5</link>
      <guid>episode-5</guid>
      <pubDate>Mon, 15 Jan 2024 12:00:00 GMT</pubDate>
    </item>
    <item>
      <title>第4話 前夜</title>
      <link>https://example.com/episodes/4</link>
      <guid>episode-4</guid>
    </item>
  </channel>
</rss>`

func newFeedExtractor(buf *bytes.Buffer, mirrorHosts []string) *FeedExtractor {
	return NewFeedExtractor(newTestFetcher(), &mockSanitizer{}, mirrorHosts, newTestLogger(buf))
}

func feedDescriptor(endpoint string) feed.Descriptor {
	return feed.Descriptor{
		Class:       feed.ClassSyndicationFeed,
		EndpointURL: endpoint,
	}
}

// フィードの先頭アイテムから識別子を抽出し、初回観測はokになることを検証
func TestFeedExtractor_FirstObservation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, testRSS)
	}))
	defer server.Close()

	var buf bytes.Buffer
	e := newFeedExtractor(&buf, nil)

	res := testResource("url-1", "https://kakuyomu.jp/works/123")
	out := e.Extract(context.Background(), res, feedDescriptor(server.URL))

	if out.Status != model.CheckStatusOK {
		t.Fatalf("Status = %q, want ok (エラー: %s)", out.Status, out.ErrorMessage)
	}
	if out.Item == nil {
		t.Fatal("Itemがnil")
	}
	// guidが識別子として優先される
	if out.Item.ID != "episode-5" {
		t.Errorf("Item.ID = %q, want %q", out.Item.ID, "episode-5")
	}
	if out.Item.Title != "第5話 決戦" {
		t.Errorf("Item.Title = %q", out.Item.Title)
	}
	if out.Item.Link != "https://example.com/episodes/5" {
		t.Errorf("Item.Link = %q", out.Item.Link)
	}
	if out.Item.PublishedAt == nil {
		t.Error("pubDateのあるアイテムでPublishedAtがnil")
	}
}

// 新しい先頭アイテムがchangedとして検知されることを検証
func TestFeedExtractor_DetectsNewItem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testRSS)
	}))
	defer server.Close()

	var buf bytes.Buffer
	e := newFeedExtractor(&buf, nil)

	res := testResource("url-1", "https://kakuyomu.jp/works/123")
	res.LatestItemID = "episode-4"

	out := e.Extract(context.Background(), res, feedDescriptor(server.URL))

	if out.Status != model.CheckStatusChanged {
		t.Errorf("Status = %q, want changed", out.Status)
	}
}

// guidのないアイテムはlinkを識別子とすることを検証
func TestFeedExtractor_IDPriority_Link(t *testing.T) {
	rss := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>t</title>
<item><title>ep1</title><link>https://example.com/ep/1</link></item>
</channel></rss>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rss)
	}))
	defer server.Close()

	var buf bytes.Buffer
	e := newFeedExtractor(&buf, nil)

	out := e.Extract(context.Background(), testResource("url-1", "u"), feedDescriptor(server.URL))

	if out.Item == nil || out.Item.ID != "https://example.com/ep/1" {
		t.Errorf("Item = %+v, want ID=link", out.Item)
	}
}

// guidもlinkもないアイテムはタイトルを識別子とすることを検証
func TestFeedExtractor_IDPriority_Title(t *testing.T) {
	rss := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>t</title>
<item><title>タイトルのみ</title></item>
</channel></rss>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rss)
	}))
	defer server.Close()

	var buf bytes.Buffer
	e := newFeedExtractor(&buf, nil)

	out := e.Extract(context.Background(), testResource("url-1", "u"), feedDescriptor(server.URL))

	if out.Item == nil || out.Item.ID != "タイトルのみ" {
		t.Errorf("Item = %+v, want ID=title", out.Item)
	}
}

// アイテムのないフィードがエラー結果になることを検証
func TestFeedExtractor_EmptyFeed(t *testing.T) {
	rss := `<?xml version="1.0"?><rss version="2.0"><channel><title>empty</title></channel></rss>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rss)
	}))
	defer server.Close()

	var buf bytes.Buffer
	e := newFeedExtractor(&buf, nil)

	out := e.Extract(context.Background(), testResource("url-1", "u"), feedDescriptor(server.URL))

	if out.Status != model.CheckStatusError {
		t.Errorf("Status = %q, want error", out.Status)
	}
}

// パース不能なレスポンスがエラー結果になることを検証
func TestFeedExtractor_ParseFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>not a feed at all`)
	}))
	defer server.Close()

	var buf bytes.Buffer
	e := newFeedExtractor(&buf, nil)

	out := e.Extract(context.Background(), testResource("url-1", "u"), feedDescriptor(server.URL))

	if out.Status != model.CheckStatusError {
		t.Errorf("Status = %q, want error", out.Status)
	}
}

// rsshub系以外のエンドポイントはミラー試行されないことを検証
func TestFeedExtractor_MirrorCandidates_NonRSSHub(t *testing.T) {
	var buf bytes.Buffer
	e := newFeedExtractor(&buf, []string{"rsshub.app", "rsshub.moeyy.cn"})

	got := e.mirrorCandidates("https://example.com/rss")

	if len(got) != 1 || got[0] != "https://example.com/rss" {
		t.Errorf("mirrorCandidates = %v, want 入力のみ", got)
	}
}

// rsshub系エンドポイントはミラーホストのバリエーションを重複なく返すことを検証
func TestFeedExtractor_MirrorCandidates_RSSHub(t *testing.T) {
	var buf bytes.Buffer
	e := newFeedExtractor(&buf, []string{"rsshub.app", "rsshub.moeyy.cn", "rsshub.rssforever.com"})

	got := e.mirrorCandidates("https://rsshub.app/kakuyomu/episode/123")

	want := []string{
		"https://rsshub.app/kakuyomu/episode/123",
		"https://rsshub.moeyy.cn/kakuyomu/episode/123",
		"https://rsshub.rssforever.com/kakuyomu/episode/123",
	}
	if len(got) != len(want) {
		t.Fatalf("候補数 = %d, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidates[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// 最初のミラーが失敗しても次のミラーで成功することを検証
func TestFeedExtractor_MirrorFailover(t *testing.T) {
	// 成功するミラー
	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testRSS)
	}))
	defer okServer.Close()

	// 失敗するミラー
	failServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failServer.Close()

	var buf bytes.Buffer
	e := newFeedExtractor(&buf, nil)

	candidates := []string{failServer.URL + "/feed", okServer.URL + "/feed"}
	out := e.extractFromCandidates(context.Background(), testResource("url-1", "u"), candidates)

	if out.Status != model.CheckStatusOK {
		t.Fatalf("Status = %q, want ok (エラー: %s)", out.Status, out.ErrorMessage)
	}
	if out.Item == nil || out.Item.ID != "episode-5" {
		t.Errorf("Item = %+v", out.Item)
	}
}

// 全ミラーが失敗した場合にエラー結果になることを検証
func TestFeedExtractor_AllMirrorsFail(t *testing.T) {
	failServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failServer.Close()

	var buf bytes.Buffer
	e := newFeedExtractor(&buf, nil)

	out := e.Extract(context.Background(), testResource("url-1", "u"), feedDescriptor(failServer.URL))

	if out.Status != model.CheckStatusError {
		t.Fatalf("Status = %q, want error", out.Status)
	}
	if out.HTTPStatus == nil || *out.HTTPStatus != 502 {
		t.Errorf("HTTPStatus = %v, want 502", out.HTTPStatus)
	}
}
