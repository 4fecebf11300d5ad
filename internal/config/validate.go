package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/breeze-rmm/kiosk/internal/logging"
)

var log = logging.L("config")

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"warning": true,
	"error": true,
}

// Result splits validation problems into ones that block startup and ones
// that are logged and clamped to a safe value.
type Result struct {
	Fatals   []error
	Warnings []error
}

// HasFatals reports whether any fatal validation error was found.
func (r Result) HasFatals() bool {
	return len(r.Fatals) > 0
}

// ValidateTiered checks the config for invalid values. Dangerous zero/out of
// range values that would wedge the session engine (e.g. a zero ping
// interval busy-looping the keep-alive producer) are clamped and reported as
// warnings; structurally invalid values that the engine cannot act on at
// all are fatal.
func (c *Config) ValidateTiered() Result {
	var r Result

	if c.FormFactor == "" {
		r.Fatals = append(r.Fatals, fmt.Errorf("form_factor must not be empty"))
	}

	if c.FramebufferDevice == "" {
		r.Fatals = append(r.Fatals, fmt.Errorf("framebuffer_device must not be empty"))
	}
	if c.TouchDevice == "" {
		r.Fatals = append(r.Fatals, fmt.Errorf("touch_device must not be empty"))
	}

	if c.LogFile != "" {
		if u, err := url.Parse(c.LogFile); err == nil && u.Scheme != "" {
			r.Fatals = append(r.Fatals, fmt.Errorf("log_file %q must be a filesystem path, not a URL", c.LogFile))
		}
	}

	if c.ResolveTimeout <= 0 {
		r.Warnings = append(r.Warnings, fmt.Errorf("resolve_timeout %s is non-positive, clamping to 5s", c.ResolveTimeout))
		c.ResolveTimeout = 5_000_000_000
	}
	if c.ConnectTimeout <= 0 {
		r.Warnings = append(r.Warnings, fmt.Errorf("connect_timeout %s is non-positive, clamping to 3s", c.ConnectTimeout))
		c.ConnectTimeout = 3_000_000_000
	}
	if c.QueryTimeout <= 0 {
		r.Warnings = append(r.Warnings, fmt.Errorf("query_timeout %s is non-positive, clamping to 3s", c.QueryTimeout))
		c.QueryTimeout = 3_000_000_000
	}
	if c.QueryAttempts < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("query_attempts %d is below minimum 1, clamping", c.QueryAttempts))
		c.QueryAttempts = 1
	} else if c.QueryAttempts > 10 {
		r.Warnings = append(r.Warnings, fmt.Errorf("query_attempts %d exceeds maximum 10, clamping", c.QueryAttempts))
		c.QueryAttempts = 10
	}
	if c.PingInterval <= 0 {
		r.Warnings = append(r.Warnings, fmt.Errorf("ping_interval %s is non-positive, clamping to 5m", c.PingInterval))
		c.PingInterval = 5 * 60 * 1_000_000_000
	}

	if c.OutboundChannelCapacity < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("outbound_channel_capacity %d is below minimum 1, clamping to 10", c.OutboundChannelCapacity))
		c.OutboundChannelCapacity = 10
	}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
	}
	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
	}

	return r
}
