package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/core"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DEBUG", "HEALTH_SERVER_PORT", "DISCOVERY_MODE", "KUBECONFIG", "KUBE_CONTEXT", "NAMESPACE", "POD_NAMESPACE"} {
		t.Setenv(key, "")
	}
}

func TestParseFilesMode(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := Parse([]string{"--files", dir, "--port", "9000", "--num-threads", "5"}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, core.ModeFiles, cfg.Mode)
	assert.Equal(t, dir, cfg.FilesDirectory)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 5, cfg.NumThreads)
	assert.Equal(t, DiscoveryStatic, cfg.DiscoveryMode)
}

func TestParseProxyModeDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse([]string{"--proxy", "inst.eecs.berkeley.edu"}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, core.ModeProxy, cfg.Mode)
	assert.Equal(t, "inst.eecs.berkeley.edu", cfg.ProxyTarget)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 0, cfg.NumThreads)
	assert.Empty(t, cfg.HealthServerPort)
}

func TestParseEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEBUG", "true")
	t.Setenv("HEALTH_SERVER_PORT", "8081")
	t.Setenv("DISCOVERY_MODE", "k8s")
	t.Setenv("POD_NAMESPACE", "shop")

	cfg, err := Parse([]string{"--proxy", "web:8080"}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "8081", cfg.HealthServerPort)
	assert.Equal(t, DiscoveryKubernetes, cfg.DiscoveryMode)
	assert.Equal(t, "shop", cfg.Namespace)
}

func TestParseErrors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{name: "no mode", args: []string{"--port", "8000"}},
		{name: "both modes", args: []string{"--files", dir, "--proxy", "example.com"}},
		{name: "zero threads", args: []string{"--files", dir, "--num-threads", "0"}},
		{name: "negative threads", args: []string{"--files", dir, "--num-threads", "-3"}},
		{name: "non numeric port", args: []string{"--files", dir, "--port", "http"}},
		{name: "port out of range", args: []string{"--files", dir, "--port", "70000"}},
		{name: "missing flag value", args: []string{"--files"}},
		{name: "unknown flag", args: []string{"--files", dir, "--verbose"}},
		{name: "stray argument", args: []string{"--files", dir, "extra"}},
		{name: "bad proxy port", args: []string{"--proxy", "host:notaport"}},
		{name: "proxy port without host", args: []string{"--proxy", ":8080"}},
		{name: "missing directory", args: []string{"--files", filepath.Join(dir, "nope")}},
		{name: "files is not a directory", args: []string{"--files", file}},
		{name: "kubernetes discovery with files", args: []string{"--files", dir}, env: map[string]string{"DISCOVERY_MODE": "kubernetes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Parse(tt.args, &bytes.Buffer{})
			assert.Error(t, err)
		})
	}
}

func TestParseHelp(t *testing.T) {
	clearEnv(t)
	var out bytes.Buffer

	_, err := Parse([]string{"--help"}, &out)

	assert.ErrorIs(t, err, ErrHelp)
	assert.Equal(t, Usage, out.String())
}
