//go:build integration
// +build integration

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-kb/pkg/infra/config"
	"github.com/kart-io/sentinel-kb/pkg/infra/logger"
	"github.com/kart-io/sentinel-kb/pkg/infra/middleware"
	logopts "github.com/kart-io/sentinel-kb/pkg/options/logger"
	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
)

const initialKBConfig = `
log:
  level: info
  format: json
  development: false
  output-paths:
    - stdout

server:
  middleware:
    timeout:
      timeout: 30s
      skip-paths:
        - /healthz
    request-id:
      header: X-Request-ID
    cors:
      allow-origins:
        - "*"
      max-age: 86400
    recovery:
      enable-stack-trace: false
`

const updatedKBConfig = `
log:
  level: debug
  format: text
  development: true
  output-paths:
    - stdout
    - stderr

server:
  middleware:
    timeout:
      timeout: 90s
      skip-paths:
        - /healthz
        - /v1/drafts
    request-id:
      header: X-Trace-ID
    cors:
      allow-origins:
        - "https://console.example.com"
      max-age: 3600
    recovery:
      enable-stack-trace: true
`

func writeKBConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func loadViper(t *testing.T, path string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	return v
}

// TestIntegrationFullReload drives a realistic reload: the logger and the
// middleware stack both pick up a rewritten config file.
func TestIntegrationFullReload(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "sentinel-kb.yaml")
	writeKBConfig(t, configFile, initialKBConfig)
	v := loadViper(t, configFile)

	logOpts := logopts.NewOptions()
	require.NoError(t, v.UnmarshalKey("log", logOpts))
	require.Equal(t, "info", logOpts.Level)

	mwOpts := mwopts.NewOptions()
	require.NoError(t, v.UnmarshalKey("server.middleware", mwOpts))
	require.Equal(t, 30*time.Second, mwOpts.Timeout.Timeout)

	reloadableLogger := logger.NewReloadableLogger(logOpts)
	reloadableMiddleware := middleware.NewReloadableMiddleware(mwOpts)

	watcher := config.NewWatcher(v)
	reloadableLogger.RegisterWithWatcher(watcher, "logger", "log")
	reloadableMiddleware.RegisterWithWatcher(watcher, "middleware", "server.middleware")
	watcher.Start()
	defer watcher.Stop()
	require.True(t, watcher.IsWatching())

	time.Sleep(100 * time.Millisecond)
	writeKBConfig(t, configFile, updatedKBConfig)

	require.Eventually(t, func() bool {
		return reloadableLogger.GetOptions().Level == "debug"
	}, 3*time.Second, 50*time.Millisecond, "logger options were not reloaded")

	logNow := reloadableLogger.GetOptions()
	assert.Equal(t, "text", logNow.Format)
	assert.True(t, logNow.Development)

	mwNow := reloadableMiddleware.GetOptions()
	assert.Equal(t, 90*time.Second, mwNow.Timeout.Timeout)
	assert.Equal(t, "X-Trace-ID", mwNow.RequestID.Header)
	assert.Equal(t, 3600, mwNow.CORS.MaxAge)
	assert.Equal(t, []string{"https://console.example.com"}, mwNow.CORS.AllowOrigins)
	assert.True(t, mwNow.Recovery.EnableStackTrace)
}

// TestIntegrationUnsubscribe verifies a component stops receiving changes
// once unregistered.
func TestIntegrationUnsubscribe(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "sentinel-kb.yaml")
	writeKBConfig(t, configFile, initialKBConfig)
	v := loadViper(t, configFile)

	logOpts := logopts.NewOptions()
	require.NoError(t, v.UnmarshalKey("log", logOpts))
	reloadableLogger := logger.NewReloadableLogger(logOpts)

	watcher := config.NewWatcher(v)
	reloadableLogger.RegisterWithWatcher(watcher, "logger", "log")
	watcher.Start()
	defer watcher.Stop()

	watcher.Unsubscribe("logger")

	time.Sleep(100 * time.Millisecond)
	writeKBConfig(t, configFile, updatedKBConfig)
	time.Sleep(time.Second)

	assert.Equal(t, "info", reloadableLogger.GetOptions().Level,
		"unsubscribed component must keep its old options")
}
