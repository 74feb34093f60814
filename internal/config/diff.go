package config

import (
	"reflect"
	"slices"
)

// ConfigDiff describes what changed between two configs. Log level and CORS
// origins apply live; every other change is listed in RestartRequired.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	CORSChanged    bool
	NewCORSOrigins []string

	// RestartRequired names the top-level sections whose changes only take
	// effect after a restart.
	RestartRequired []string
}

// Changed reports whether anything differs.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.CORSChanged || len(d.RestartRequired) > 0
}

// Diff compares old and new.
func Diff(old, new *Config) ConfigDiff {
	var d ConfigDiff

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if !slices.Equal(old.Server.CORSOrigins, new.Server.CORSOrigins) {
		d.CORSChanged = true
		d.NewCORSOrigins = slices.Clone(new.Server.CORSOrigins)
	}

	oldServer, newServer := old.Server, new.Server
	oldServer.LogLevel, newServer.LogLevel = "", ""
	oldServer.CORSOrigins, newServer.CORSOrigins = nil, nil

	sections := []struct {
		name     string
		old, new any
	}{
		{"server", oldServer, newServer},
		{"providers", old.Providers, new.Providers},
		{"transcription", old.Transcription, new.Transcription},
		{"coach", old.Coach, new.Coach},
		{"storage", old.Storage, new.Storage},
		{"mcp", old.MCP, new.MCP},
		{"resilience", old.Resilience, new.Resilience},
	}
	for _, s := range sections {
		if !reflect.DeepEqual(s.old, s.new) {
			d.RestartRequired = append(d.RestartRequired, s.name)
		}
	}
	return d
}
