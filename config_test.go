package depot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Config
		wantErr bool
	}{
		{
			name:  "Empty uses defaults",
			input: "",
			want:  DefaultConfig(),
		},
		{
			name: "Overrides",
			input: `
page_size = 16384

[logging]
level = "debug"
format = "json"
`,
			want: Config{PageSize: 16384, Logging: LoggingConfig{Level: "debug", Format: "json"}},
		},
		{
			name:  "Non-positive page size falls back",
			input: "page_size = -1\n",
			want:  DefaultConfig(),
		},
		{
			name:    "Malformed",
			input:   "page_size = \"big",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseConfig([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "depot.toml")
	require.NoError(t, os.WriteFile(path, []byte("page_size = 4096\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4096, cfg.PageSize)
	assert.Equal(t, "off", cfg.Logging.Level)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	for _, cfg := range []LoggingConfig{
		{Level: "off"},
		{Level: "debug", Format: "console"},
		{Level: "warn", Format: "json"},
		{Level: "nonsense", Format: "console"},
	} {
		log, err := newLogger(cfg)
		require.NoError(t, err, "%+v", cfg)
		require.NotNil(t, log)
	}

	w, err := Factory.NewWorld(Factory.NewRegistry(), WithConfig(Config{Logging: LoggingConfig{Level: "error", Format: "json"}}))
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, w.Config().PageSize)
	assert.NotEmpty(t, w.ID())
}
