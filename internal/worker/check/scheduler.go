package check

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler は定期的にチェックサイクルを起動するワーカー。
// サーバーレス環境での外部cron起動に相当する役割を常駐プロセスとして担う。
type Scheduler struct {
	runner *Runner
	logger *slog.Logger
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(runner *Runner, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner: runner,
		logger: logger,
	}
}

// Start は指定間隔でチェックサイクルを実行し続ける。
// 起動直後に1回実行し、以降はtickerで繰り返す。
// コンテキストのキャンセルで停止するまでブロックする。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	s.logger.Info("チェックスケジューラを開始します",
		slog.String("interval", interval.String()),
	)

	s.sweep(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("チェックスケジューラを停止します")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	if _, err := s.runner.Sweep(ctx, false); err != nil {
		s.logger.Error("チェックサイクルの起動に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}
