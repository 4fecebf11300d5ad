package config

import (
	"strings"
	"testing"
)

func TestValidateTieredEmptyFormFactorIsFatal(t *testing.T) {
	cfg := Default()
	cfg.FormFactor = ""
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("empty form_factor should be fatal")
	}
}

func TestValidateTieredEmptyDevicePathIsFatal(t *testing.T) {
	cfg := Default()
	cfg.FramebufferDevice = ""
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("empty framebuffer_device should be fatal")
	}
}

func TestValidateTieredLogFileURLIsFatal(t *testing.T) {
	cfg := Default()
	cfg.LogFile = "https://example.com/log"
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("URL log_file should be fatal")
	}
}

func TestValidateTieredNonPositiveTimeoutsAreWarnings(t *testing.T) {
	cfg := Default()
	cfg.ResolveTimeout = 0
	cfg.ConnectTimeout = -1
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("clamped timeouts should be warnings, not fatal: %v", result.Fatals)
	}
	if len(result.Warnings) < 2 {
		t.Fatalf("expected at least 2 warnings, got %d", len(result.Warnings))
	}
	if cfg.ResolveTimeout <= 0 || cfg.ConnectTimeout <= 0 {
		t.Fatalf("timeouts were not clamped: resolve=%s connect=%s", cfg.ResolveTimeout, cfg.ConnectTimeout)
	}
}

func TestValidateTieredQueryAttemptsClamping(t *testing.T) {
	cfg := Default()
	cfg.QueryAttempts = 0
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("clamped query_attempts should be warning: %v", result.Fatals)
	}
	if cfg.QueryAttempts != 1 {
		t.Fatalf("QueryAttempts = %d, want 1", cfg.QueryAttempts)
	}

	cfg2 := Default()
	cfg2.QueryAttempts = 99
	cfg2.ValidateTiered()
	if cfg2.QueryAttempts != 10 {
		t.Fatalf("QueryAttempts = %d, want 10", cfg2.QueryAttempts)
	}
}

func TestValidateTieredOutboundCapacityClamping(t *testing.T) {
	cfg := Default()
	cfg.OutboundChannelCapacity = 0
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("clamped capacity should be warning: %v", result.Fatals)
	}
	if cfg.OutboundChannelCapacity != 10 {
		t.Fatalf("OutboundChannelCapacity = %d, want 10", cfg.OutboundChannelCapacity)
	}
}

func TestValidateTieredUnknownLogLevelIsWarning(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "verbose"
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatal("unknown log level should not be fatal")
	}
	found := false
	for _, err := range result.Warnings {
		if strings.Contains(err.Error(), "log_level") {
			found = true
		}
	}
	if !found {
		t.Fatal("expected warning for unknown log level")
	}
}

func TestValidateTieredInvalidLogFormatIsWarning(t *testing.T) {
	cfg := Default()
	cfg.LogFormat = "xml"
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatal("invalid log format should not be fatal")
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected warning for invalid log format")
	}
}

func TestHasFatals(t *testing.T) {
	var r Result
	if r.HasFatals() {
		t.Fatal("HasFatals() on empty result should be false")
	}
	r.Fatals = append(r.Fatals, errTest("boom"))
	if !r.HasFatals() {
		t.Fatal("HasFatals() should be true with a fatal error")
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }

func TestValidConfigHasNoErrors(t *testing.T) {
	cfg := Default()
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("default config has fatals: %v", result.Fatals)
	}
	if len(result.Warnings) > 0 {
		t.Fatalf("default config has warnings: %v", result.Warnings)
	}
}
