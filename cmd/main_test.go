package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"buyerwatch/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCategorizeCmd(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"when", "is", "possession?"}, "category: delivery\n"},
		{[]string{"RERA", "hearing", "date?"}, "category: rera\n"},
		{[]string{"hello"}, "no category (generic fallback answer)\n"},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		cmd := categorizeCmd()
		cmd.SetOut(&out)
		cmd.SetArgs(tt.args)
		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), tt.want)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Database: config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "bw.db")},
		AI:       config.AIConfig{Provider: "gemini"},
	}
}

func TestImportCmd_Sample(t *testing.T) {
	cfg = testConfig(t)
	logger = zap.NewNop()

	var out bytes.Buffer
	cmd := importCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--sample"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "messages from sample_chat")

	cmd = importCmd()
	cmd.SetArgs([]string{})
	assert.Error(t, cmd.ExecuteContext(context.Background()), "neither file nor --sample")
}

func TestAskCmd_Plain(t *testing.T) {
	cfg = testConfig(t)
	logger = zap.NewNop()

	var out bytes.Buffer
	cmd := askCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--plain", "what", "is", "the", "status?"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "No chat data has been uploaded yet.")
	assert.Contains(t, out.String(), "strategy: no_data")
}
