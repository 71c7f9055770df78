package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.Schedule != "0 * * * *" || cfg.SessionIssuer != "duekit" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Thresholds, []int{7, 3, 1}) {
		t.Fatalf("unexpected thresholds %v", cfg.Thresholds)
	}
	if cfg.EmailRateWindow != time.Hour || !cfg.Migrate {
		t.Fatalf("unexpected email window or migrate %+v", cfg)
	}
}

func TestLoadEnvAndFlags(t *testing.T) {
	t.Setenv("DUEKIT_THRESHOLDS", "14,7")
	t.Setenv("DUEKIT_REDIS_ADDR", "localhost:6379")
	t.Setenv("DUEKIT_TIMEZONE", "America/New_York")

	cfg, err := Load([]string{"--redis-addr", "redis:6380", "--log-level", "debug"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(cfg.Thresholds, []int{14, 7}) {
		t.Fatalf("env thresholds not applied: %v", cfg.Thresholds)
	}
	if cfg.RedisAddr != "redis:6380" {
		t.Fatalf("flag should override env, got %q", cfg.RedisAddr)
	}
	if cfg.Level().String() != "debug" {
		t.Fatalf("unexpected level %v", cfg.Level())
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "America/New_York" {
		t.Fatalf("unexpected location %v %v", loc, err)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("DUEKIT_REDIS_DB", "not-an-int")
	_, err := Load(nil)
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	bad := cfg
	bad.Timezone = "Mars/Olympus"
	bad.LogLevel = "loud"
	bad.Thresholds = []int{-1}
	err = bad.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"timezone", "negative", "not a valid logrus Level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
	if _, err := Load([]string{"--thresholds", ""}); err == nil {
		t.Fatal("expected error for empty thresholds")
	}
}
