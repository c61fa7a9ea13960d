package check

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/kurosuke/check-pages/internal/feed"
	"github.com/kurosuke/check-pages/internal/model"
)

// テスト用の共有モック群。

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// mockFetchGuard はFetchGuardServiceのテスト用モック。
// httptestサーバー（127.0.0.1）へのフェッチを許可するため、
// 検証なしの素のHTTPクライアントを返す。
type mockFetchGuard struct {
	validateErr error
}

func (m *mockFetchGuard) NewSafeClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func (m *mockFetchGuard) ValidateURL(_ string) error {
	return m.validateErr
}

// mockSanitizer はTitleSanitizerServiceのテスト用モック。
type mockSanitizer struct{}

func (m *mockSanitizer) Sanitize(s string) string {
	return s
}

// mockResourceRepo はResourceRepositoryのテスト用モック。
type mockResourceRepo struct {
	mu sync.Mutex

	resources []*model.MonitoredResource
	listErr   error
	findErr   error
	updateErr error

	updateCalls []updateCall
}

type updateCall struct {
	id        string
	checkedAt time.Time
	item      *model.ExtractedItem
}

func (m *mockResourceRepo) ListActive(_ context.Context) ([]*model.MonitoredResource, error) {
	return m.resources, m.listErr
}

func (m *mockResourceRepo) FindByID(_ context.Context, id string) (*model.MonitoredResource, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, r := range m.resources {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockResourceRepo) UpdateAfterCheck(_ context.Context, id string, checkedAt time.Time, item *model.ExtractedItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls = append(m.updateCalls, updateCall{id: id, checkedAt: checkedAt, item: item})
	return m.updateErr
}

// mockCheckRepo はCheckRepositoryのテスト用モック。
type mockCheckRepo struct {
	mu sync.Mutex

	records        []*model.CheckRecord
	appendErr      error
	fingerprint    string
	fingerprintErr error
}

func (m *mockCheckRepo) Append(_ context.Context, record *model.CheckRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.records = append(m.records, record)
	return nil
}

func (m *mockCheckRepo) LatestFingerprint(_ context.Context, _ string) (string, error) {
	return m.fingerprint, m.fingerprintErr
}

// mockExtractor はExtractorのテスト用モック。
type mockExtractor struct {
	mu sync.Mutex

	outcome   Outcome
	callCount int
	lastDesc  feed.Descriptor
	panicMsg  string
	delay     time.Duration
	onExtract func()
}

func (m *mockExtractor) Extract(_ context.Context, _ *model.MonitoredResource, desc feed.Descriptor) Outcome {
	m.mu.Lock()
	m.callCount++
	m.lastDesc = desc
	m.mu.Unlock()
	if m.onExtract != nil {
		m.onExtract()
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	return m.outcome
}

// testResource はテスト用のアクティブな監視対象URLを生成する。
func testResource(id, url string) *model.MonitoredResource {
	return &model.MonitoredResource{
		ID:                   id,
		ProjectID:            "project-1",
		URL:                  url,
		Active:               true,
		CheckIntervalMinutes: 60,
	}
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }
