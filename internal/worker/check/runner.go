package check

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kurosuke/check-pages/internal/feed"
	"github.com/kurosuke/check-pages/internal/model"
	"github.com/kurosuke/check-pages/internal/repository"
)

// Metrics はオーケストレータが記録するメトリクスのインターフェース。
type Metrics interface {
	RecordCheck(status model.CheckStatus)
	RecordHTTPStatus(statusCode int)
	RecordCheckLatency(duration time.Duration)
	RecordFeedFallback()
}

// nopMetrics はメトリクス未設定時の何もしない実装。
type nopMetrics struct{}

func (nopMetrics) RecordCheck(model.CheckStatus)    {}
func (nopMetrics) RecordHTTPStatus(int)             {}
func (nopMetrics) RecordCheckLatency(time.Duration) {}
func (nopMetrics) RecordFeedFallback()              {}

// Runner はチェック実行のオーケストレータ。
// 対象リソースの選出、分類、エクストラクタの起動、フォールバック、
// 結果の永続化とリソース状態の更新までを統括する。
// 呼び出しをまたぐ状態は一切持たず、すべてストアに置く。
type Runner struct {
	resources repository.ResourceRepository
	checks    repository.CheckRepository

	api   Extractor // structured-api
	feedx Extractor // syndication-feed
	html  Extractor // html（フォールバック先を兼ねる）

	logger         *slog.Logger
	metrics        Metrics
	maxBatch       int
	maxConcurrency int
}

// NewRunner はRunnerの新しいインスタンスを生成する。
// maxBatchが0以下の場合は50、maxConcurrencyが0以下の場合は5を使用する。
func NewRunner(
	resources repository.ResourceRepository,
	checks repository.CheckRepository,
	api, feedx, html Extractor,
	logger *slog.Logger,
	metrics Metrics,
	maxBatch, maxConcurrency int,
) *Runner {
	if maxBatch <= 0 {
		maxBatch = 50
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Runner{
		resources:      resources,
		checks:         checks,
		api:            api,
		feedx:          feedx,
		html:           html,
		logger:         logger,
		metrics:        metrics,
		maxBatch:       maxBatch,
		maxConcurrency: maxConcurrency,
	}
}

// SelectDue はチェック対象のリソースを選出する。
// forceの場合はactiveな全リソース、それ以外は未チェックまたは
// チェック間隔が経過したリソースを返す。いずれもバッチ上限で打ち切る。
// 上限は1回の起動の最悪実行時間を抑えるためのもので、
// あふれたリソースは次回の起動で処理される。
func (r *Runner) SelectDue(ctx context.Context, force bool) ([]*model.MonitoredResource, error) {
	all, err := r.resources.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("チェック対象の取得に失敗しました: %w", err)
	}

	var due []*model.MonitoredResource
	if force {
		due = all
	} else {
		now := time.Now()
		for _, res := range all {
			if res.IsDue(now) {
				due = append(due, res)
			}
		}
	}

	if len(due) > r.maxBatch {
		due = due[:r.maxBatch]
	}
	return due, nil
}

// RunOne は1リソースのチェックを実行する。
// 分類 → 抽出 →（フィード失敗時のHTMLフォールバック）→ 結果の追記 →
// リソース状態の更新、の順で処理する。チェック結果はエラーであっても
// 必ず追記し、last_checked_atは1回の呼び出しにつき必ず1回更新する。
// 最新アイテム情報はok/changedの場合のみ更新する。
func (r *Runner) RunOne(ctx context.Context, resource *model.MonitoredResource) error {
	desc := feed.Classify(resource.URL)

	r.logger.Info("チェックを開始します",
		slog.String("url_id", resource.ID),
		slog.String("project_id", resource.ProjectID),
		slog.String("url", resource.URL),
		slog.String("class", string(desc.Class)),
		slog.String("endpoint", desc.EndpointURL),
	)

	outcome := r.extract(ctx, resource, desc)
	if err := r.appendRecord(ctx, resource, outcome); err != nil {
		return err
	}

	// フィード失敗時の一回限りの同期フォールバック。
	// 不安定なミラー経由のフィードに限り、同一起動内でHTMLチェックを再試行する。
	if outcome.Status == model.CheckStatusError && desc.FallbackToHTML {
		r.metrics.RecordFeedFallback()
		r.logger.Info("フィード取得に失敗したためHTMLチェックへフォールバックします",
			slog.String("url_id", resource.ID),
			slog.String("url", resource.URL),
		)

		htmlDesc := feed.Descriptor{Class: feed.ClassHTML, EndpointURL: resource.URL}
		outcome = r.extract(ctx, resource, htmlDesc)
		if err := r.appendRecord(ctx, resource, outcome); err != nil {
			return err
		}
	}

	// 最新アイテム情報は成功時（ok/changed）のみ反映する。
	var item *model.ExtractedItem
	if outcome.Status != model.CheckStatusError {
		item = outcome.Item
	}
	if err := r.resources.UpdateAfterCheck(ctx, resource.ID, time.Now(), item); err != nil {
		r.logger.Error("リソース状態の更新に失敗しました",
			slog.String("url_id", resource.ID),
			slog.String("error", err.Error()),
		)
		return err
	}

	return nil
}

// extract は分類に応じたエクストラクタを起動し、メトリクスを記録する。
// 試行の開始時刻はここで捕捉し、Outcomeに載せて永続化まで引き渡す。
func (r *Runner) extract(ctx context.Context, resource *model.MonitoredResource, desc feed.Descriptor) Outcome {
	started := time.Now()

	var outcome Outcome
	switch desc.Class {
	case feed.ClassStructuredAPI:
		outcome = r.api.Extract(ctx, resource, desc)
	case feed.ClassSyndicationFeed:
		outcome = r.feedx.Extract(ctx, resource, desc)
	default:
		outcome = r.html.Extract(ctx, resource, desc)
	}
	outcome.StartedAt = started

	r.metrics.RecordCheck(outcome.Status)
	if outcome.HTTPStatus != nil {
		r.metrics.RecordHTTPStatus(*outcome.HTTPStatus)
	}
	r.metrics.RecordCheckLatency(time.Since(started))

	if outcome.Status == model.CheckStatusError {
		r.logger.Warn("チェックがエラーになりました",
			slog.String("url_id", resource.ID),
			slog.String("url", resource.URL),
			slog.String("class", string(desc.Class)),
			slog.String("error", outcome.ErrorMessage),
		)
	}

	return outcome
}

// appendRecord は抽出結果をチェック結果ログに追記する。
// エラー結果のレコードにはアイテム識別子を含めない
// （次回チェックが前回の識別子と比較できるようにするため）。
func (r *Runner) appendRecord(ctx context.Context, resource *model.MonitoredResource, outcome Outcome) error {
	finishedAt := time.Now()
	startedAt := outcome.StartedAt
	if startedAt.IsZero() {
		startedAt = finishedAt
	}

	record := &model.CheckRecord{
		ID:           uuid.NewString(),
		ResourceID:   resource.ID,
		StartedAt:    startedAt,
		FinishedAt:   finishedAt,
		Status:       outcome.Status,
		HTTPStatus:   outcome.HTTPStatus,
		ResponseMs:   outcome.ResponseMs,
		ContentHash:  outcome.ContentHash,
		ErrorMessage: outcome.ErrorMessage,
	}
	if outcome.Item != nil && outcome.Status != model.CheckStatusError {
		record.ItemID = outcome.Item.ID
		record.ItemPublishedAt = outcome.Item.PublishedAt
	}

	if err := r.checks.Append(ctx, record); err != nil {
		r.logger.Error("チェック結果の追記に失敗しました",
			slog.String("url_id", resource.ID),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// RunBatch は複数リソースのチェックをsemaphoreで並列数を制御しながら実行する。
// 1リソースの失敗・パニックは他リソースの処理に影響させない。
// コンテキストがキャンセルされた場合は新しいチェックの開始を止める
// （実行中のチェックの結果はそのまま永続化される）。
func (r *Runner) RunBatch(ctx context.Context, resources []*model.MonitoredResource) {
	if len(resources) == 0 {
		return
	}

	sem := make(chan struct{}, r.maxConcurrency)
	var wg sync.WaitGroup

	for i, resource := range resources {
		if ctx.Err() != nil {
			r.logger.Info("キャンセルされたため残りのチェックを中止します",
				slog.Int("remaining", len(resources)-i),
			)
			break
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(res *model.MonitoredResource) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Error("チェック中にパニックが発生しました",
						slog.String("url_id", res.ID),
						slog.Any("panic", rec),
						slog.String("stack", string(debug.Stack())),
					)
				}
			}()

			if err := r.RunOne(ctx, res); err != nil {
				r.logger.Error("チェックの実行に失敗しました",
					slog.String("url_id", res.ID),
					slog.String("url", res.URL),
					slog.String("error", err.Error()),
				)
			}
		}(resource)
	}

	wg.Wait()
}

// Sweep はチェック対象を選出してバッチ実行し、処理件数を返す。
// 選出自体の失敗（ストア到達不能）の場合のみエラーを返す。
// 個々のリソースの失敗はエラーレコードとして記録され、ここには伝播しない。
func (r *Runner) Sweep(ctx context.Context, force bool) (int, error) {
	start := time.Now()

	due, err := r.SelectDue(ctx, force)
	if err != nil {
		return 0, err
	}

	if len(due) == 0 {
		r.logger.Info("チェック対象のリソースはありません", slog.Bool("force", force))
		return 0, nil
	}

	r.logger.Info("チェックサイクルを開始します",
		slog.Int("resource_count", len(due)),
		slog.Bool("force", force),
	)

	r.RunBatch(ctx, due)

	r.logger.Info("チェックサイクルが完了しました",
		slog.Int("resource_count", len(due)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return len(due), nil
}

// RunSingle は指定IDのリソースを1件だけチェックする（手動チェック用）。
// リソースが存在しない・無効化されている場合はAPIErrorを返す。
func (r *Runner) RunSingle(ctx context.Context, id string) error {
	resource, err := r.resources.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("リソースの取得に失敗しました: %w", err)
	}
	if resource == nil {
		return model.NewResourceNotFoundError(id)
	}
	if !resource.Active {
		return model.NewResourceInactiveError(id)
	}

	return r.RunOne(ctx, resource)
}
