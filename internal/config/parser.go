package config

import (
	"fmt"
	"os"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// ParseError represents a config parsing error with a friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// LoadFile layers a Lua config file over the defaults, then applies
// environment overrides and validates the result. A missing file is
// not an error; defaults plus environment apply.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := parseString(string(data), &cfg); err != nil {
				return Config{}, err
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, &ParseError{Message: "config validation failed", Detail: err.Error()}
	}
	return cfg, nil
}

// ParseString layers a Lua config from a string over the defaults and
// validates the result. Environment overrides are not applied; this is
// the seam tests use.
func ParseString(luaCode string) (Config, error) {
	cfg := Default()
	if err := parseString(luaCode, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, &ParseError{Message: "config validation failed", Detail: err.Error()}
	}
	return cfg, nil
}

// parseString executes luaCode in the sandbox and overlays the global
// "discovery" table onto cfg. Fields absent from the table keep their
// current values.
func parseString(luaCode string, cfg *Config) error {
	L := newSandboxedVM()
	defer L.Close()

	if err := L.DoString(luaCode); err != nil {
		return &ParseError{Message: "Lua syntax error", Detail: err.Error()}
	}

	root := L.GetGlobal("discovery")
	if root.Type() != lua.LTTable {
		return &ParseError{
			Message: "missing or invalid 'discovery' table",
			Detail:  fmt.Sprintf("expected table, got %s", root.Type()),
		}
	}
	table := root.(*lua.LTable)

	if v := table.RawGetString("authority"); v.Type() == lua.LTTable {
		if err := extractAuthority(v.(*lua.LTable), &cfg.Authority); err != nil {
			return err
		}
	}
	if v := table.RawGetString("server"); v.Type() == lua.LTTable {
		extractServer(v.(*lua.LTable), &cfg.Server)
	}
	if v := table.RawGetString("refresh"); v.Type() == lua.LTTable {
		if err := extractRefresh(v.(*lua.LTable), &cfg.Refresh); err != nil {
			return err
		}
	}
	if v := table.RawGetString("log"); v.Type() == lua.LTTable {
		extractLog(v.(*lua.LTable), &cfg.Log)
	}

	return nil
}

func extractAuthority(table *lua.LTable, a *Authority) error {
	if v := table.RawGetString("base_url"); v.Type() == lua.LTString {
		a.BaseURL = v.String()
	}
	if v := table.RawGetString("signature_suffix"); v.Type() == lua.LTString {
		a.SignatureSuffix = v.String()
	}

	if v := table.RawGetString("public_keys"); v.Type() == lua.LTTable {
		var keys []string
		v.(*lua.LTable).ForEach(func(_, value lua.LValue) {
			if value.Type() == lua.LTString {
				keys = append(keys, value.String())
			}
		})
		// A configured key list replaces the compiled-in default
		// entirely; it never appends to it.
		a.PublicKeys = keys
	}

	if v := table.RawGetString("gone_statuses"); v.Type() == lua.LTTable {
		var codes []int
		v.(*lua.LTable).ForEach(func(_, value lua.LValue) {
			if value.Type() == lua.LTNumber {
				codes = append(codes, int(lua.LVAsNumber(value)))
			}
		})
		a.GoneStatuses = codes
	}

	return nil
}

func extractServer(table *lua.LTable, s *Server) {
	if v := table.RawGetString("listen"); v.Type() == lua.LTString {
		s.Listen = v.String()
	}
}

func extractRefresh(table *lua.LTable, r *Refresh) error {
	fields := []struct {
		name string
		dst  *time.Duration
	}{
		{"interval", &r.Interval},
		{"fetch_timeout", &r.FetchTimeout},
		{"retry_window", &r.RetryWindow},
	}

	for _, f := range fields {
		v := table.RawGetString(f.name)
		if v.Type() != lua.LTString {
			continue
		}
		d, err := time.ParseDuration(v.String())
		if err != nil {
			return &ParseError{
				Message: fmt.Sprintf("invalid refresh %s", f.name),
				Detail:  err.Error(),
			}
		}
		*f.dst = d
	}
	return nil
}

func extractLog(table *lua.LTable, l *Log) {
	if v := table.RawGetString("level"); v.Type() == lua.LTString {
		l.Level = v.String()
	}
	if v := table.RawGetString("format"); v.Type() == lua.LTString {
		l.Format = v.String()
	}
}
