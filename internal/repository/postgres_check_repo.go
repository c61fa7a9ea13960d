package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kurosuke/check-pages/internal/model"
)

// PostgresCheckRepo はPostgreSQLを使用したチェック結果ログリポジトリ。
type PostgresCheckRepo struct {
	db *sql.DB
}

// NewPostgresCheckRepo はPostgresCheckRepoを生成する。
func NewPostgresCheckRepo(db *sql.DB) *PostgresCheckRepo {
	return &PostgresCheckRepo{db: db}
}

// Append はチェック結果を1件追記する。
func (r *PostgresCheckRepo) Append(ctx context.Context, record *model.CheckRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO checks (id, url_id, started_at, finished_at, status,
		                     http_status, response_ms, content_hash,
		                     item_id, item_published_at, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		record.ID, record.ResourceID, record.StartedAt, record.FinishedAt,
		record.Status, nullInt(record.HTTPStatus), nullInt64(record.ResponseMs),
		nullString(record.ContentHash), nullString(record.ItemID),
		nullTime(record.ItemPublishedAt), nullString(record.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("チェック結果の追記に失敗しました: %w", err)
	}
	return nil
}

// LatestFingerprint は直近の非エラーチェックのcontent_hashを返す。
// エラーレコードはハッシュを持たないため比較基準から除外する。
// 該当レコードが存在しない場合は空文字列を返す。
func (r *PostgresCheckRepo) LatestFingerprint(ctx context.Context, resourceID string) (string, error) {
	var hash sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT content_hash FROM checks
		 WHERE url_id = $1 AND status IN ('ok', 'changed')
		 ORDER BY started_at DESC
		 LIMIT 1`,
		resourceID,
	).Scan(&hash)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("比較基準フィンガープリントの取得に失敗しました: %w", err)
	}

	return hash.String, nil
}

// nullInt はnil許容のintをsql.NullInt64に変換する。
func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

// nullInt64 はnil許容のint64をsql.NullInt64に変換する。
func nullInt64(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}
