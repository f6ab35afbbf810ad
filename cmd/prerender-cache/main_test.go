package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/johnnybui/prerender-redis-cache/internal/testutil"
	"github.com/johnnybui/prerender-redis-cache/pkg/cache"
	"github.com/johnnybui/prerender-redis-cache/pkg/plugin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestSettings(t *testing.T, cfgFile string, args ...string) settings {
	t.Helper()

	v := viper.New()
	cmd := newServeCmd(v)
	require.NoError(t, cmd.ParseFlags(args))
	require.NoError(t, initConfig(v, cfgFile))
	return loadSettings(v)
}

func TestLoadSettings_Defaults(t *testing.T) {
	s := loadTestSettings(t, "")

	assert.Equal(t, ":8080", s.Addr)
	assert.Equal(t, "localhost:6379", s.RedisAddr)
	assert.Equal(t, "", s.CacheExp)
	assert.False(t, s.CrawlStats)
	assert.Equal(t, 30*time.Second, s.RenderTimeout)
	assert.Equal(t, "prerender-cache/0.1.0", s.UserAgent)
	assert.Equal(t, 15*time.Second, s.ShutdownTimeout)
}

func TestLoadSettings_Sources(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("cache-exp: 7d\nredis-addr: redis:6379\ncrawl-stats: true\n"), 0o600))

	t.Setenv("PRERENDER_REDIS_ADDR", "env-redis:6379")
	t.Setenv("PRERENDER_LOCAL_TTL", "30s")

	s := loadTestSettings(t, cfgFile, "--cache-exp", "12h")

	assert.Equal(t, "12h", s.CacheExp, "flag wins over config file")
	assert.Equal(t, "env-redis:6379", s.RedisAddr, "env wins over config file")
	assert.Equal(t, 30*time.Second, s.LocalTTL)
	assert.True(t, s.CrawlStats, "config file wins over default")
}

func TestInitConfig_MissingFile(t *testing.T) {
	err := initConfig(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSettings_Credentials(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		creds, err := settings{}.credentials()
		require.NoError(t, err)
		assert.Nil(t, creds)

		_, err = settings{}.pluginConfig(creds).Validate()
		assert.ErrorIs(t, err, plugin.ErrMissingCredentials)
	})

	t.Run("flags", func(t *testing.T) {
		creds, err := settings{RedisUsername: "app", RedisPassword: "secret", RedisDB: 2}.credentials()
		require.NoError(t, err)
		assert.Equal(t, &plugin.Credentials{Username: "app", Password: "secret", DB: 2}, creds)
	})

	t.Run("db only", func(t *testing.T) {
		creds, err := settings{RedisDB: 3}.credentials()
		require.NoError(t, err)
		assert.Equal(t, &plugin.Credentials{DB: 3}, creds)

		_, err = settings{RedisAddr: "localhost:6379", CacheExp: "1d"}.pluginConfig(creds).Validate()
		assert.NoError(t, err)
	})

	t.Run("file wins over flags", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "creds.yaml")
		require.NoError(t, os.WriteFile(path, []byte("username: file\npassword: fromfile\ndb: 1\n"), 0o600))

		creds, err := settings{Credentials: path, RedisPassword: "flag"}.credentials()
		require.NoError(t, err)
		assert.Equal(t, "fromfile", creds.Password)
		assert.Equal(t, 1, creds.DB)
	})

	t.Run("unreadable file", func(t *testing.T) {
		_, err := settings{Credentials: filepath.Join(t.TempDir(), "nope.yaml")}.credentials()
		assert.Error(t, err)
	})
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "prerender-cache v0.1.0\n", out.String())
}

func TestServe(t *testing.T) {
	redisServer := miniredis.RunT(t)
	redisServer.RequireAuth("secret")

	mock := testutil.NewMockRenderer()
	defer mock.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	baseURL := "http://" + ln.Addr().String()

	s := settings{
		RedisAddr:       redisServer.Addr(),
		RedisPassword:   "secret",
		CacheExp:        "1d",
		CrawlStats:      true,
		SyncWrites:      true,
		RendererURL:     mock.URL(),
		RenderTimeout:   5 * time.Second,
		UserAgent:       "test-agent",
		LogLevel:        "error",
		ShutdownTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- serve(ctx, s, ln) }()

	get := func(path string) (int, string) {
		resp, err := http.Get(baseURL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	require.Eventually(t, func() bool {
		resp, err := http.Get(baseURL + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	page := "https://example.com/landing"

	status, body := get("/" + page)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, testutil.DefaultHTML(page), body)
	assert.Equal(t, "test-agent", mock.LastUserAgent())
	assert.True(t, redisServer.Exists(cache.StoreKey(page)), "sync write lands before the response")

	status, body = get("/" + page)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, testutil.DefaultHTML(page), body)
	assert.Equal(t, 1, mock.Renders(page))

	status, _ = get("/ready")
	assert.Equal(t, http.StatusOK, status)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not shut down")
	}
}

func TestServe_InvalidLogLevel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	err = serve(context.Background(), settings{LogLevel: "loud"}, ln)
	assert.Error(t, err)
}
