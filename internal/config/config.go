// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Check
	CheckTimeout       time.Duration
	CheckMaxBatch      int
	CheckMaxConcurrent int
	CheckRetentionDays int
	FetchMaxSize       int64
	SweepInterval      time.Duration

	// Feed mirrors
	// rsshub系エンドポイントのミラーホスト。先頭が第一候補。
	FeedMirrorHosts []string

	// Rate Limit（check-runnerエンドポイント、req/min）
	RateLimitRunner int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// defaultMirrorHosts はrsshub系フィードのデフォルトミラーホストリスト。
// 第三者ミラーは不安定なため、複数ホストを順に試行する。
var defaultMirrorHosts = []string{
	"rsshub.app",
	"rsshub.moeyy.cn",
	"rsshub.rssforever.com",
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("required environment variable is not set: DATABASE_URL")
	}

	cfg.CheckTimeout = getEnvDuration("CHECK_TIMEOUT", 12*time.Second)
	cfg.CheckMaxBatch = getEnvInt("CHECK_MAX_BATCH", 50)
	cfg.CheckMaxConcurrent = getEnvInt("CHECK_MAX_CONCURRENT", 5)
	cfg.CheckRetentionDays = getEnvInt("CHECK_RETENTION_DAYS", 180)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 5242880)
	cfg.SweepInterval = getEnvDuration("SWEEP_INTERVAL", 5*time.Minute)
	cfg.FeedMirrorHosts = getEnvList("FEED_MIRROR_HOSTS", defaultMirrorHosts)
	cfg.RateLimitRunner = getEnvInt("RATE_LIMIT_RUNNER", 30)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// getEnvList はカンマ区切りの環境変数を文字列スライスとして読み込む。
// 空要素は除去する。
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultVal
	}
	return result
}
