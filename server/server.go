// Package server assembles the HTTP surface: root routes (health, GraphQL)
// and the authenticated, organization-scoped /api group.
package server

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"cmms.GO/api"
	_ "cmms.GO/api/asset"
	_ "cmms.GO/api/cyclecount"
	_ "cmms.GO/api/graphql"
	_ "cmms.GO/api/health"
	_ "cmms.GO/api/pm"
	_ "cmms.GO/api/realtime"
	_ "cmms.GO/api/scheduler"
	_ "cmms.GO/api/stock"
	_ "cmms.GO/api/workorder"
	"cmms.GO/app"
	"cmms.GO/core/auth"
)

// New builds the echo instance. It applies the route registries, so it can
// only be called once per process.
func New(a *app.App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Gzip())
	e.Use(middleware.Decompress())
	e.Use(requestLogger(a.Log))

	api.ApplyRoutes(e, a)

	apiGroup := e.Group("/api", auth.Middleware(a.DB), api.Logger(a.Log), api.Organization())
	api.ApplyModules(apiGroup, a)
	return e
}

func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	log = log.Named("http")
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				log.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	})
}

var bannerFonts = []string{"banner", "big", "block", "slant", "standard", "small", "doom", "larry3d"}

// Run serves on port until SIGINT or SIGTERM, then shuts down gracefully.
func Run(a *app.App, port string) error {
	e := New(a)

	name := a.Config.AppName
	if name == "" {
		name = "cmms"
	}
	figure.NewFigure(name, bannerFonts[rand.Intn(len(bannerFonts))], true).Print()

	errc := make(chan error, 1)
	go func() {
		a.Log.Info("server listening", zap.String("port", port))
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case <-stop:
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(ctx)
}
