package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
tautulli:
  url: http://tautulli:8181
  api_key: tautulli-key
radarr:
  url: http://radarr:7878
  api_key: radarr-key
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:3003", cfg.Listen)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DryRun)
	assert.Equal(t, 200, cfg.Scan.PageSize)
	assert.Equal(t, 4, cfg.Scan.Parallelism)
	assert.Equal(t, 30, cfg.Scan.DeadlineMinutes)
	assert.Equal(t, "http://tautulli:8181", cfg.Tautulli.URL)
	require.NotNil(t, cfg.Radarr)
	assert.Nil(t, cfg.Sonarr)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
listen: 127.0.0.1:9000
log_level: debug
dry_run: true
scan:
  page_size: 50
  parallelism: 8
tautulli:
  url: http://tautulli:8181
  api_key: tautulli-key
sonarr:
  url: http://sonarr:8989
  api_key: sonarr-key
  add_import_exclusion: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, 50, cfg.Scan.PageSize)
	assert.Equal(t, 8, cfg.Scan.Parallelism)
	require.NotNil(t, cfg.Sonarr)
	assert.True(t, cfg.Sonarr.AddImportExclusion)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing tautulli",
			content: "radarr:\n  url: http://radarr:7878\n  api_key: key\n",
			wantErr: "missing tautulli config",
		},
		{
			name:    "tautulli without api key",
			content: "tautulli:\n  url: http://tautulli:8181\nradarr:\n  url: http://radarr:7878\n  api_key: key\n",
			wantErr: "tautulli API key is required",
		},
		{
			name:    "no media manager",
			content: "tautulli:\n  url: http://tautulli:8181\n  api_key: key\n",
			wantErr: "either sonarr or radarr",
		},
		{
			name:    "radarr without api key",
			content: "tautulli:\n  url: http://tautulli:8181\n  api_key: key\nradarr:\n  url: http://radarr:7878\n",
			wantErr: "radarr API key is required",
		},
		{
			name: "email enabled without recipients",
			content: `
tautulli:
  url: http://tautulli:8181
  api_key: key
radarr:
  url: http://radarr:7878
  api_key: key
email:
  enabled: true
  smtp_host: smtp.example.com
  from_email: plexsweep@example.com
`,
			wantErr: "at least one email recipient",
		},
		{
			name: "zero page size",
			content: `
tautulli:
  url: http://tautulli:8181
  api_key: key
radarr:
  url: http://radarr:7878
  api_key: key
scan:
  page_size: 0
`,
			wantErr: "scan page size must be positive",
		},
		{
			name: "zero scan deadline",
			content: `
tautulli:
  url: http://tautulli:8181
  api_key: key
radarr:
  url: http://radarr:7878
  api_key: key
scan:
  deadline_minutes: 0
`,
			wantErr: "scan deadline must be positive",
		},
		{
			name: "zero delete parallelism",
			content: `
tautulli:
  url: http://tautulli:8181
  api_key: key
radarr:
  url: http://radarr:7878
  api_key: key
scan:
  delete_parallelism: 0
`,
			wantErr: "scan delete parallelism must be positive",
		},
		{
			name: "zero delete timeout",
			content: `
tautulli:
  url: http://tautulli:8181
  api_key: key
radarr:
  url: http://radarr:7878
  api_key: key
scan:
  delete_timeout_seconds: 0
`,
			wantErr: "scan delete timeout must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
