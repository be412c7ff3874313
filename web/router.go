package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/deemkeen/stegogram/domain"
	"github.com/deemkeen/stegogram/profile"
	"github.com/deemkeen/stegogram/util"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	feedLimit      = 100
	requestTimeout = 5 * time.Second
)

// Store is the read side of the profile store served over http.
type Store interface {
	profile.Gateway
	Feed(ctx context.Context, limit int) ([]domain.FeedItem, error)
}

// NewRouter builds the http handler. limiter may be nil.
func NewRouter(conf *util.AppConfig, store Store, limiter *RateLimiter, logger *zap.Logger) *gin.Engine {
	if !conf.Conf.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	g := gin.New()
	g.Use(gin.Recovery())
	g.Use(RequestLogger(logger))
	g.Use(gzip.Gzip(gzip.DefaultCompression))
	if limiter != nil {
		g.Use(RateLimitMiddleware(limiter))
	}

	g.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": util.GetVersion()})
	})

	g.GET("/users/:id", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		id := c.Param("id")
		raw, err := store.Get(ctx, id)
		switch {
		case errors.Is(err, profile.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		case err != nil:
			logger.Warn("profile read failed", zap.String("user", id), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "Profile store unavailable"})
			return
		}
		c.JSON(http.StatusOK, raw.Normalize())
	})

	g.GET("/feed", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		c.Header("Content-Type", "application/xml; charset=utf-8")

		items, err := store.Feed(ctx, feedLimit)
		if err != nil {
			logger.Warn("feed read failed", zap.Error(err))
			c.Render(http.StatusBadGateway, render.String{Format: ""})
			return
		}
		rss, err := GetRSS(conf, items, c.Query("username"))
		if err != nil {
			logger.Error("could not render rss", zap.Error(err))
			c.Render(http.StatusInternalServerError, render.String{Format: ""})
			return
		}
		c.Render(http.StatusOK, render.String{Format: "%s", Data: []any{rss}})
	})

	return g
}

// Serve runs the http server until ctx is done, then shuts it down.
func Serve(ctx context.Context, conf *util.AppConfig, store Store, logger *zap.Logger) error {
	// 10 requests per second per ip, burst of 20
	limiter := NewRateLimiter(rate.Limit(10), 20)
	go limiter.RunCleanup(ctx, 5*time.Minute)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", conf.Conf.Host, conf.Conf.HttpPort),
		Handler:           NewRouter(conf, store, limiter, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("stopping http server")
	return srv.Shutdown(shutdownCtx)
}
