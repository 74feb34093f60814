package config_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/MrWong99/mouthsync/internal/config"
)

func baseConfig() *config.Config {
	cfg := &config.Config{Providers: config.ProvidersConfig{STT: config.ProviderEntry{Name: "whisper"}}}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestDiff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   config.ConfigDiff
	}{
		{name: "identical", mutate: func(*config.Config) {}},
		{
			name:   "log level",
			mutate: func(c *config.Config) { c.Server.LogLevel = config.LogDebug },
			want:   config.ConfigDiff{LogLevelChanged: true, NewLogLevel: config.LogDebug},
		},
		{
			name:   "cors",
			mutate: func(c *config.Config) { c.Server.CORSOrigins = []string{"*"} },
			want:   config.ConfigDiff{CORSChanged: true, NewCORSOrigins: []string{"*"}},
		},
		{
			name: "restart sections",
			mutate: func(c *config.Config) {
				c.Server.ListenAddr = ":1"
				c.Providers.STT.Model = "large"
				c.Storage.PostgresDSN = "postgres://x"
			},
			want: config.ConfigDiff{RestartRequired: []string{"server", "providers", "storage"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			old, updated := baseConfig(), baseConfig()
			tt.mutate(updated)
			got := config.Diff(old, updated)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Diff mismatch (-want +got):\n%s", diff)
			}
			if got.Changed() != (tt.name != "identical") {
				t.Errorf("Changed() = %v", got.Changed())
			}
		})
	}
}
