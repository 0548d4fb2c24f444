package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/asmacro/internal/testutil"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "asmacro.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "alternate: false\n")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	root := filepath.Dir(cfgPath)
	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(root, DefaultCatalogPath), cfg.CatalogPath)
	assert.Equal(t, DefaultMaxNesting, cfg.MaxNesting)
	assert.Equal(t, ".L", cfg.LocalPrefix)
	assert.Equal(t, ",", cfg.VarargSeparator)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, cfgPath, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_FromFile(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, `
mri: true
case_fold: true
local_prefix: .Lm
max_nesting: 0
catalog_path: /var/lib/asmacro.db
include_dirs: [include, /opt/inc]
output: json
`)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.True(t, cfg.MRI)
	assert.True(t, cfg.CaseFold)
	assert.Equal(t, ".Lm", cfg.LocalPrefix)
	assert.Equal(t, 0, cfg.MaxNesting)
	assert.Equal(t, "/var/lib/asmacro.db", cfg.CatalogPath)
	assert.Equal(t, []string{filepath.Join(filepath.Dir(cfgPath), "include"), "/opt/inc"}, cfg.IncludeDirs)
	assert.Equal(t, "json", cfg.OutputFormat)
}

func TestLoadConfig_EnvPrecedenceOverFile(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "local_prefix: .Lfile\n")
	t.Setenv("ASMACRO_LOCAL_PREFIX", ".Lenv")
	t.Setenv("ASMACRO_ALTERNATE", "true")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, ".Lenv", cfg.LocalPrefix, "env var should override config file")
	assert.True(t, cfg.Alternate)
}

func TestLoadConfig_FlagPrecedence(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "local_prefix: .Lfile\ncatalog_path: from_file.db\n")
	t.Setenv("ASMACRO_LOCAL_PREFIX", ".Lenv")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "config file")
	flags.String("local-prefix", "", "local symbol prefix")
	flags.String("catalog", "", "catalog path")
	flags.Bool("case-fold", false, "fold case")
	flags.StringSlice("include-dir", nil, "include directories")
	require.NoError(t, flags.Set("config", cfgPath))
	require.NoError(t, flags.Set("local-prefix", ".Lflag"))
	require.NoError(t, flags.Set("catalog", ":memory:"))
	require.NoError(t, flags.Set("case-fold", "true"))
	require.NoError(t, flags.Set("include-dir", "inc"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	assert.Equal(t, ".Lflag", cfg.LocalPrefix, "flag value should override config file and env var")
	assert.Equal(t, ":memory:", cfg.CatalogPath)
	assert.True(t, cfg.CaseFold)
	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(cwd, "inc")}, cfg.IncludeDirs, "flag paths are relative to the working directory")
}

func TestLoadConfig_FlagNotSetUsesEnv(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "local_prefix: .Lfile\n")
	t.Setenv("ASMACRO_LOCAL_PREFIX", ".Lenv")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("local-prefix", "", "local symbol prefix")

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)
	assert.Equal(t, ".Lenv", cfg.LocalPrefix, "env var should be used when flag is not set")
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "bad yaml", content: "mri: [\n", wantErr: "error reading config file"},
		{name: "bad output", content: "output: html\n", wantErr: `invalid output format "html"`},
		{name: "negative nesting", content: "max_nesting: -3\n", wantErr: "max_nesting must not be negative"},
		{name: "bad prefix", content: "local_prefix: \"a b\"\n", wantErr: "local_prefix"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			_, err := LoadConfig(writeConfig(t, tt.content), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()), "falls back to a discard logger")

	logger := testutil.NewTestLogger(t)
	ctx := context.WithValue(context.Background(), LoggerKey(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}
