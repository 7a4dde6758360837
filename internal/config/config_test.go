package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
matching:
  free_super_likes_per_day: 3
  default_timezone: Europe/Minsk
  undo_ttl: 2h
http:
  allowed_origins:
    - https://app.example.com
s3:
  presign_ttl: 5m
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Matching.FreeSuperLikesPerDay != 3 {
		t.Fatalf("unexpected free super likes/day: %d", cfg.Matching.FreeSuperLikesPerDay)
	}
	if cfg.Matching.DefaultTimezone != "Europe/Minsk" {
		t.Fatalf("unexpected default timezone: %s", cfg.Matching.DefaultTimezone)
	}
	if cfg.Matching.UndoTTL.String() != "2h0m0s" {
		t.Fatalf("unexpected undo ttl: %s", cfg.Matching.UndoTTL)
	}
	if len(cfg.HTTP.AllowedOrigins) != 1 || cfg.HTTP.AllowedOrigins[0] != "https://app.example.com" {
		t.Fatalf("unexpected allowed origins: %v", cfg.HTTP.AllowedOrigins)
	}
	if cfg.S3.PresignTTL.String() != "5m0s" {
		t.Fatalf("unexpected presign ttl: %s", cfg.S3.PresignTTL)
	}

	if cfg.Matching.LikeMaxPerMinute != 45 {
		t.Fatalf("like_max_per_minute default should stay 45")
	}
	if cfg.Postgres.ChangeChannel != "plutonic_changes" {
		t.Fatalf("unexpected change channel default: %s", cfg.Postgres.ChangeChannel)
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config with missing file: %v", err)
	}

	if cfg.Matching.FreeSuperLikesPerDay != 1 {
		t.Fatalf("unexpected default free super likes/day: %d", cfg.Matching.FreeSuperLikesPerDay)
	}
	if cfg.Matching.DefaultTimezone != "UTC" {
		t.Fatalf("unexpected default timezone: %s", cfg.Matching.DefaultTimezone)
	}
	if cfg.Worker.DeviceTokenPruneSpec != "@every 6h" {
		t.Fatalf("unexpected prune spec: %s", cfg.Worker.DeviceTokenPruneSpec)
	}
	if cfg.Realtime.SendQueueSize != 64 {
		t.Fatalf("unexpected send queue size: %d", cfg.Realtime.SendQueueSize)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("FREE_SUPER_LIKES_PER_DAY", "2")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("POSTGRES_AUTO_MIGRATE", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Matching.FreeSuperLikesPerDay != 2 {
		t.Fatalf("unexpected free super likes/day: %d", cfg.Matching.FreeSuperLikesPerDay)
	}
	if len(cfg.HTTP.AllowedOrigins) != 2 || cfg.HTTP.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected allowed origins: %v", cfg.HTTP.AllowedOrigins)
	}
	if !cfg.Postgres.AutoMigrate {
		t.Fatalf("expected auto migrate override")
	}
}

func TestLoadRejectsBadEnvValue(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("UNDO_TTL", "soon")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for malformed duration")
	}
}

func TestLoadRejectsDefaultSecretInProduction(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("APP_ENV", "prod")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error when jwt_secret is left at default in production")
	}
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("DEFAULT_TIMEZONE", "Mars/Olympus")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV",
		"HTTP_ADDR",
		"HTTP_READ_TIMEOUT",
		"HTTP_WRITE_TIMEOUT",
		"HTTP_IDLE_TIMEOUT",
		"HTTP_ALLOWED_ORIGINS",
		"LOG_LEVEL",
		"POSTGRES_DSN",
		"POSTGRES_CHANGE_CHANNEL",
		"POSTGRES_AUTO_MIGRATE",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"S3_ENDPOINT",
		"S3_ACCESS_KEY",
		"S3_SECRET_KEY",
		"S3_BUCKET",
		"S3_USE_SSL",
		"S3_PRESIGN_TTL",
		"JWT_SECRET",
		"JWT_ACCESS_TTL",
		"REFRESH_TTL",
		"PUSH_TELEGRAM_TOKEN",
		"FREE_SUPER_LIKES_PER_DAY",
		"DEFAULT_TIMEZONE",
		"UNDO_TTL",
		"WORKER_DEVICE_TOKEN_PRUNE_SPEC",
		"WORKER_DEVICE_TOKEN_MAX_AGE",
	} {
		t.Setenv(key, "")
	}
}
