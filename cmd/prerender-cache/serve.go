package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/johnnybui/prerender-redis-cache/pkg/cache"
	"github.com/johnnybui/prerender-redis-cache/pkg/logging"
	"github.com/johnnybui/prerender-redis-cache/pkg/plugin"
	"github.com/johnnybui/prerender-redis-cache/pkg/render"
	"github.com/johnnybui/prerender-redis-cache/pkg/server"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the prerender cache HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := loadSettings(v)

			ln, err := net.Listen("tcp", s.Addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", s.Addr, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, s, ln)
		},
	}

	defaults := render.DefaultConfig("")

	f := cmd.Flags()
	f.String("addr", ":8080", "HTTP listen address")
	f.String("redis-addr", "localhost:6379", "Redis address (host:port)")
	f.String("redis-username", "", "Redis username (ignored when --credentials is set)")
	f.String("redis-password", "", "Redis password (ignored when --credentials is set)")
	f.Int("redis-db", 0, "Redis database (ignored when --credentials is set)")
	f.String("credentials", "", "YAML or JSON file with Redis username, password and db")
	f.String("cache-exp", "", `freshness window, "<N>h" or "<N>d" (empty: never expire)`)
	f.Bool("crawl-stats", false, "append a crawl record per request to the crawlStats stream")
	f.Int64("stats-max-len", 0, "approximate cap on the crawlStats stream (0: unbounded)")
	f.Bool("sync-writes", false, "wait for cache writes before responding")
	f.Duration("local-ttl", 0, "in-process cache TTL in front of Redis (0: off)")
	f.String("renderer-url", "", "base URL of the rendering service (empty: fetch pages directly)")
	f.Duration("render-timeout", defaults.Timeout, "timeout per render")
	f.String("user-agent", defaults.UserAgent, "User-Agent sent to the renderer")
	f.Duration("shutdown-timeout", 15*time.Second, "grace period for in-flight requests and cache writes")
	_ = v.BindPFlags(f)

	return cmd
}

// serve runs the server on ln until ctx is cancelled, then shuts down.
func serve(ctx context.Context, s settings, ln net.Listener) error {
	level, err := logging.ParseLevel(s.LogLevel)
	if err != nil {
		return err
	}
	logging.Setup(logging.Config{Level: level, Pretty: s.LogPretty, Output: os.Stderr})
	logger := logging.NewLogger("prerender-cache")

	creds, err := s.credentials()
	if err != nil {
		return err
	}

	opts := &redis.Options{Addr: s.RedisAddr}
	if creds != nil {
		opts.Username = creds.Username
		opts.Password = creds.Password
		opts.DB = creds.DB
	}
	redisClient := redis.NewClient(opts)
	defer redisClient.Close()

	p := plugin.New(s.pluginConfig(creds), plugin.WithRedis(redisClient))

	rcfg := render.DefaultConfig(s.RendererURL)
	rcfg.Timeout = s.RenderTimeout
	rcfg.UserAgent = s.UserAgent
	renderer, err := render.New(rcfg)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}

	srv := server.New(renderer, p)
	if _, enabled := p.(*plugin.Cache); enabled {
		srv.SetReadiness(cache.NewRedisStore(redisClient))
	}

	httpServer := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("addr", ln.Addr().String()).
			Str("renderer", s.RendererURL).
			Msg("Starting prerender cache server")

		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down")

		timeout := s.ShutdownTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := p.Close(shutdownCtx); err != nil {
			return fmt.Errorf("flush cache writes: %w", err)
		}
		return nil
	})

	return g.Wait()
}
