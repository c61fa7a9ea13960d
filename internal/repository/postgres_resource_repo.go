package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kurosuke/check-pages/internal/model"
)

// PostgresResourceRepo はPostgreSQLを使用した監視対象URLリポジトリ。
type PostgresResourceRepo struct {
	db *sql.DB
}

// NewPostgresResourceRepo はPostgresResourceRepoを生成する。
func NewPostgresResourceRepo(db *sql.DB) *PostgresResourceRepo {
	return &PostgresResourceRepo{db: db}
}

// resourceColumns はMonitoredResourceのSELECT句。
const resourceColumns = `id, project_id, url, active, check_interval_minutes,
	        last_checked_at, latest_item_id, latest_item_published_at,
	        created_at, updated_at`

// ListActive はactiveな監視対象URLを全件取得する。
func (r *PostgresResourceRepo) ListActive(ctx context.Context) ([]*model.MonitoredResource, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+resourceColumns+`
		 FROM urls WHERE active = true
		 ORDER BY last_checked_at NULLS FIRST`,
	)
	if err != nil {
		return nil, fmt.Errorf("監視対象URLの一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var resources []*model.MonitoredResource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("監視対象URLの読み取り中にエラーが発生しました: %w", err)
	}

	return resources, nil
}

// FindByID は指定IDの監視対象URLを取得する。見つからない場合はnilを返す。
func (r *PostgresResourceRepo) FindByID(ctx context.Context, id string) (*model.MonitoredResource, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+resourceColumns+` FROM urls WHERE id = $1`,
		id,
	)

	res, err := scanResource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// UpdateAfterCheck はチェック試行後のリソース状態を更新する。
// last_checked_atは常に更新し、itemが非nilの場合のみ最新アイテム情報を更新する。
func (r *PostgresResourceRepo) UpdateAfterCheck(ctx context.Context, id string, checkedAt time.Time, item *model.ExtractedItem) error {
	var err error
	if item != nil {
		_, err = r.db.ExecContext(ctx,
			`UPDATE urls SET
			    last_checked_at = $2,
			    latest_item_id = $3,
			    latest_item_published_at = $4,
			    updated_at = now()
			 WHERE id = $1`,
			id, checkedAt, nullString(item.ID), nullTime(item.PublishedAt),
		)
	} else {
		_, err = r.db.ExecContext(ctx,
			`UPDATE urls SET last_checked_at = $2, updated_at = now() WHERE id = $1`,
			id, checkedAt,
		)
	}
	if err != nil {
		return fmt.Errorf("チェック結果の反映に失敗しました: %w", err)
	}
	return nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanResource は1行をMonitoredResourceに変換する。
func scanResource(row rowScanner) (*model.MonitoredResource, error) {
	res := &model.MonitoredResource{}
	var projectID, latestItemID sql.NullString
	var lastCheckedAt, latestItemPublishedAt sql.NullTime
	var intervalMinutes sql.NullInt64

	err := row.Scan(
		&res.ID, &projectID, &res.URL, &res.Active, &intervalMinutes,
		&lastCheckedAt, &latestItemID, &latestItemPublishedAt,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("監視対象URLの取得に失敗しました: %w", err)
	}

	res.ProjectID = projectID.String
	res.LatestItemID = latestItemID.String
	if intervalMinutes.Valid {
		res.CheckIntervalMinutes = int(intervalMinutes.Int64)
	} else {
		res.CheckIntervalMinutes = model.DefaultCheckIntervalMinutes
	}
	if lastCheckedAt.Valid {
		t := lastCheckedAt.Time
		res.LastCheckedAt = &t
	}
	if latestItemPublishedAt.Valid {
		t := latestItemPublishedAt.Time
		res.LatestItemPublishedAt = &t
	}

	return res, nil
}

// nullString は空文字列をsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullTime はnil許容のtime.Timeをsql.NullTimeに変換する。
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
