package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
company:
  name: Acme Traders
  email: accounts@acme.in
database:
  type: csv
  csv:
    path: rows.csv
    delimiter: pipe
  column_mapping:
    "Customer Name": name
email:
  enabled: true
  smtp_server: smtp.acme.in
  from_email: accounts@acme.in
processing:
  max_concurrency: 2
`

func TestLoad_AppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Acme Traders", cfg.Company.Name)
	assert.Equal(t, "pipe", cfg.Database.CSV.Delimiter)
	assert.Equal(t, 1, cfg.Database.CSV.HeaderRows)
	assert.Equal(t, 2, cfg.Database.CSV.DataStartRow)
	assert.Equal(t, "name", cfg.Database.ColumnMapping["Customer Name"])
	assert.Equal(t, "Rs. ", cfg.Invoice.CurrencySymbol)
	assert.Equal(t, "invoice_{invoice_number}_{date}.pdf", cfg.Output.FilenameFormat)
	assert.Equal(t, TransportSMTP, cfg.Email.Transport)
	assert.Equal(t, 587, cfg.Email.SMTPPort)
	assert.Equal(t, "smtp.acme.in:587", cfg.Email.SMTPAddr())
	assert.Equal(t, 2, cfg.Processing.MaxConcurrency)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv(EnvPostgresDSN, "postgres://u:p@db/billing")
	t.Setenv(EnvSMTPPassword, "s3cret")

	cfg, err := Parse([]byte("database:\n  type: postgres\n"))
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@db/billing", cfg.Database.Postgres.DSN)
	assert.Equal(t, "s3cret", cfg.Email.Password)
	assert.Equal(t, "invoice_metadata", cfg.Database.Postgres.MetadataTable)
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown source", "database:\n  type: oracle\n"},
		{"csv without path", "database:\n  type: csv\n"},
		{"xlsx without path", "database:\n  type: xlsx\n"},
		{"mongo without database", "database:\n  type: mongodb\n  mongodb:\n    uri: mongodb://localhost\n"},
		{"smtp without server", "database:\n  csv:\n    path: a.csv\nemail:\n  enabled: true\n"},
		{"unknown transport", "database:\n  csv:\n    path: a.csv\nemail:\n  enabled: true\n  transport: pigeon\n"},
		{"negative concurrency", "database:\n  csv:\n    path: a.csv\nprocessing:\n  max_concurrency: -1\n"},
		{"data inside header", "database:\n  csv:\n    path: a.csv\n    header_rows: 2\n    data_start_row: 2\n"},
		{"bad yaml", "database: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParse_UnsupportedSourceSentinel(t *testing.T) {
	_, err := Parse([]byte("database:\n  type: oracle\n"))
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := &Config{Output: OutputConfig{
		Folder:     filepath.Join(root, "out"),
		LogsDir:    filepath.Join(root, "logs"),
		ArchiveDir: filepath.Join(root, "archive"),
	}}

	require.NoError(t, EnsureDirectories(cfg))
	for _, dir := range []string{cfg.Output.Folder, cfg.Output.LogsDir, cfg.Output.ArchiveDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
