package main

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/chatguard/chatguard/automod/event"
	"github.com/chatguard/chatguard/automod/policy"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
)

// Request metrics register with the default prometheus registry, which only allows it once per process.
var promMiddleware = sync.OnceValue(func() echo.MiddlewareFunc {
	return echoprometheus.NewMiddleware("automodd")
})

type GenericStatus struct {
	Daemon  string `json:"daemon"`
	Status  string `json:"status"`
	Message string `json:"msg,omitempty"`
}

func (s *Server) setupEcho(bind string) {
	e := echo.New()

	// httpd
	var (
		httpTimeout        = 1 * time.Minute
		httpMaxHeaderBytes = 1 * (1024 * 1024)
	)

	s.echo = e
	s.httpd = &http.Server{
		Handler:        s,
		Addr:           bind,
		WriteTimeout:   httpTimeout,
		ReadTimeout:    httpTimeout,
		MaxHeaderBytes: httpMaxHeaderBytes,
	}

	e.HideBanner = true
	e.Use(slogecho.New(s.logger))
	e.Use(middleware.Recover())
	e.Use(promMiddleware())
	e.Use(middleware.BodyLimit("4M"))
	e.HTTPErrorHandler = s.errorHandler

	e.GET("/_health", s.HandleHealthCheck)
	e.GET("/metrics", echoprometheus.NewHandler())

	api := e.Group("/v1")
	if s.ingestToken != "" {
		api.Use(middleware.KeyAuth(func(key string, c echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(s.ingestToken)) == 1, nil
		}))
	}
	api.POST("/events", s.HandleEvent)
	api.POST("/servers/:server/left", s.HandleServerLeft)
	api.GET("/servers/:server/policy", s.HandleGetPolicy)
	api.PUT("/servers/:server/policy", s.HandlePutPolicy)
	api.DELETE("/servers/:server/policy", s.HandleDeletePolicy)
}

func (s *Server) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	s.echo.ServeHTTP(rw, req)
}

func (s *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := "internal error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}
	if code >= 500 {
		s.logger.Warn("automodd-http-internal-error", "err", err)
	}
	if !c.Response().Committed {
		c.JSON(code, GenericStatus{Daemon: "automodd", Status: "error", Message: msg})
	}
}

func (s *Server) HandleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, GenericStatus{Status: "ok", Daemon: "automodd"})
}

// Accepts a single platform event, in the same envelope format as the gateway delivers. Content items are queued for evaluation; the response does not wait for a verdict.
func (s *Server) HandleEvent(c echo.Context) error {
	var env event.Envelope
	if err := c.Bind(&env); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event envelope")
	}
	if env.Type == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing event type")
	}
	ingestEventsReceived.WithLabelValues(env.Type).Inc()

	d, err := event.Decode(&env)
	if errors.Is(err, event.ErrUnsupportedEvent) {
		return c.JSON(http.StatusAccepted, GenericStatus{Daemon: "automodd", Status: "ignored"})
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	if d.ServerLeft() {
		if err := s.engine.ServerLeft(ctx, d.ServerID); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, GenericStatus{Daemon: "automodd", Status: "ok"})
	}
	if err := s.dispatcher.AddWork(ctx, d.Item); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "work queue unavailable")
	}
	return c.JSON(http.StatusAccepted, GenericStatus{Daemon: "automodd", Status: "queued"})
}

func (s *Server) HandleServerLeft(c echo.Context) error {
	if err := s.engine.ServerLeft(c.Request().Context(), c.Param("server")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, GenericStatus{Daemon: "automodd", Status: "ok"})
}

func (s *Server) HandleGetPolicy(c echo.Context) error {
	p, err := s.policies.Get(c.Request().Context(), c.Param("server"))
	if errors.Is(err, policy.ErrNoPolicy) {
		return echo.NewHTTPError(http.StatusNotFound, "no automod policy for server")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) HandlePutPolicy(c echo.Context) error {
	var p policy.ServerPolicy
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid policy")
	}
	p.ServerID = c.Param("server")
	p.Normalize()
	if err := s.policies.Put(c.Request().Context(), &p); err != nil {
		return err
	}
	// server configuration changed; custom matchers are rebuilt on next use
	s.engine.Matchers.Drop(p.ServerID)
	return c.JSON(http.StatusOK, &p)
}

func (s *Server) HandleDeletePolicy(c echo.Context) error {
	server := c.Param("server")
	if err := s.policies.Delete(c.Request().Context(), server); err != nil {
		return err
	}
	s.engine.Matchers.Drop(server)
	return c.NoContent(http.StatusNoContent)
}
