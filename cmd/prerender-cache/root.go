package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/johnnybui/prerender-redis-cache/pkg/plugin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "0.1.0"

// settings is the resolved command configuration.
type settings struct {
	Addr            string
	RedisAddr       string
	RedisUsername   string
	RedisPassword   string
	RedisDB         int
	Credentials     string
	CacheExp        string
	CrawlStats      bool
	StatsMaxLen     int64
	SyncWrites      bool
	LocalTTL        time.Duration
	RendererURL     string
	RenderTimeout   time.Duration
	UserAgent       string
	LogLevel        string
	LogPretty       bool
	ShutdownTimeout time.Duration
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:   "prerender-cache",
		Short: "Redis-backed cache in front of a prerender service",
		Long: `prerender-cache answers GET /<page-url> with a rendered copy of the page.

Fresh pages are served from Redis. Everything else is rendered upstream
and, when the render succeeds, written back to Redis for later requests.

Configuration hierarchy (highest to lowest priority):
  1. CLI flags
  2. Environment variables (PRERENDER_*)
  3. Config file (--config)
  4. Defaults`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(v, cfgFile)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("log-pretty", false, "human-readable console logs instead of JSON")
	_ = v.BindPFlags(root.PersistentFlags())

	root.AddCommand(newServeCmd(v), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "prerender-cache v%s\n", version)
		},
	}
}

// initConfig reads the config file, if any, and environment variables.
func initConfig(v *viper.Viper, cfgFile string) error {
	v.SetEnvPrefix("PRERENDER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile == "" {
		return nil
	}
	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", cfgFile, err)
	}
	return nil
}

func loadSettings(v *viper.Viper) settings {
	return settings{
		Addr:            v.GetString("addr"),
		RedisAddr:       v.GetString("redis-addr"),
		RedisUsername:   v.GetString("redis-username"),
		RedisPassword:   v.GetString("redis-password"),
		RedisDB:         v.GetInt("redis-db"),
		Credentials:     v.GetString("credentials"),
		CacheExp:        v.GetString("cache-exp"),
		CrawlStats:      v.GetBool("crawl-stats"),
		StatsMaxLen:     v.GetInt64("stats-max-len"),
		SyncWrites:      v.GetBool("sync-writes"),
		LocalTTL:        v.GetDuration("local-ttl"),
		RendererURL:     v.GetString("renderer-url"),
		RenderTimeout:   v.GetDuration("render-timeout"),
		UserAgent:       v.GetString("user-agent"),
		LogLevel:        v.GetString("log-level"),
		LogPretty:       v.GetBool("log-pretty"),
		ShutdownTimeout: v.GetDuration("shutdown-timeout"),
	}
}

// credentials returns the Redis credentials from the credentials file or,
// failing that, from the username, password and db options. Nil means none
// were given.
func (s settings) credentials() (*plugin.Credentials, error) {
	if s.Credentials != "" {
		return plugin.LoadCredentials(s.Credentials)
	}
	if s.RedisUsername == "" && s.RedisPassword == "" && s.RedisDB == 0 {
		return nil, nil
	}
	return &plugin.Credentials{
		Username: s.RedisUsername,
		Password: s.RedisPassword,
		DB:       s.RedisDB,
	}, nil
}

func (s settings) pluginConfig(creds *plugin.Credentials) plugin.Config {
	return plugin.Config{
		Credentials: creds,
		Address:     s.RedisAddr,
		CacheExp:    s.CacheExp,
		CrawlStats:  s.CrawlStats,
		StatsMaxLen: s.StatsMaxLen,
		SyncWrites:  s.SyncWrites,
		LocalTTL:    s.LocalTTL,
	}
}
