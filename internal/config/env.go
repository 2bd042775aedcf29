package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// envPrefix namespaces discod's environment overrides.
const envPrefix = "DISCOD_"

// applyEnv overlays DISCOD_* environment variables onto cfg.
// Unset and malformed values leave the existing value untouched;
// validation reports anything still inconsistent afterwards.
func applyEnv(cfg *Config) {
	setString(&cfg.Authority.BaseURL, "BASE_URL")
	setString(&cfg.Authority.SignatureSuffix, "SIGNATURE_SUFFIX")
	setStrings(&cfg.Authority.PublicKeys, "PUBLIC_KEYS")
	setInts(&cfg.Authority.GoneStatuses, "GONE_STATUSES")
	setString(&cfg.Server.Listen, "LISTEN")
	setDuration(&cfg.Refresh.Interval, "REFRESH_INTERVAL")
	setDuration(&cfg.Refresh.FetchTimeout, "FETCH_TIMEOUT")
	setDuration(&cfg.Refresh.RetryWindow, "RETRY_WINDOW")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

// setStrings splits a comma-separated value.
func setStrings(dst *[]string, key string) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}

func setInts(dst *[]int, key string) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	var out []int
	for _, part := range strings.Split(v, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return
		}
		out = append(out, n)
	}
	if len(out) > 0 {
		*dst = out
	}
}

func setDuration(dst *time.Duration, key string) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}
