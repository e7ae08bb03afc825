package config

import (
	"os"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"YUREI_GEYSER_ENDPOINT", "YUREI_GEYSER_AUTHORITY", "YUREI_GEYSER_AUTH_TOKEN",
		"YUREI_DB_URL", "YUREI_PUMPFUN_PROGRAM", "YUREI_RAYDIUM_PROGRAM",
		"YUREI_RESUME_FROM_SLOT", "YUREI_QUEUE_CAPACITY", "YUREI_LOG_LEVEL", "YUREI_LOG_COLOR",
	} {
		os.Unsetenv(k)
	}
}

func TestLoadConfigAllowsNoEnabledProtocol(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig with no program ids: %v", err)
	}
	if cfg.PumpfunEnabled || cfg.RaydiumEnabled {
		t.Fatalf("expected both protocols disabled, got pumpfun=%v raydium=%v", cfg.PumpfunEnabled, cfg.RaydiumEnabled)
	}
}

func TestResumeFromSlotPresenceIsTracked(t *testing.T) {
	clearEnv(t)
	os.Setenv("YUREI_PUMPFUN_PROGRAM", "11111111111111111111111111111111")
	defer clearEnv(t)

	cfg, err := LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ResumeFromSlotSet {
		t.Fatal("ResumeFromSlotSet should be false when the variable is absent")
	}

	os.Setenv("YUREI_RESUME_FROM_SLOT", "0") // slot 0 is a valid resume point
	cfg, err = LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.ResumeFromSlotSet || cfg.ResumeFromSlot != 0 {
		t.Fatalf("expected slot 0 with set=true, got slot=%d set=%v", cfg.ResumeFromSlot, cfg.ResumeFromSlotSet)
	}
}

func TestLoadConfigFloorsQueueCapacity(t *testing.T) {
	clearEnv(t)
	os.Setenv("YUREI_PUMPFUN_PROGRAM", "11111111111111111111111111111111")
	os.Setenv("YUREI_QUEUE_CAPACITY", "16")
	defer clearEnv(t)

	cfg, err := LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.QueueCapacity != minQueueCapacity {
		t.Fatalf("QueueCapacity = %d, want floor of %d", cfg.QueueCapacity, minQueueCapacity)
	}
	if !cfg.PumpfunEnabled || cfg.RaydiumEnabled {
		t.Fatalf("expected only pumpfun enabled, got pumpfun=%v raydium=%v", cfg.PumpfunEnabled, cfg.RaydiumEnabled)
	}
}

func TestLoadConfigRejectsInvalidBase58ProgramID(t *testing.T) {
	clearEnv(t)
	os.Setenv("YUREI_PUMPFUN_PROGRAM", "not-valid-base58-0OIl")
	defer clearEnv(t)

	if _, err := LoadConfig(nil); err == nil {
		t.Fatal("expected error for an invalid base58 program id")
	}
}

func TestLoadConfigRejectsUnknownLogLevel(t *testing.T) {
	clearEnv(t)
	os.Setenv("YUREI_PUMPFUN_PROGRAM", "11111111111111111111111111111111")
	os.Setenv("YUREI_LOG_LEVEL", "VERBOSE")
	defer clearEnv(t)

	if _, err := LoadConfig(nil); err == nil {
		t.Fatal("expected error for an unrecognized log level")
	}
}

func TestParsedLogLevelNeverPanics(t *testing.T) {
	cfg := &Config{}
	for _, lvl := range []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", "unexpected"} {
		cfg.LogLevel = lvl
		_ = cfg.ParsedLogLevel() // must not panic for any input
	}
}
