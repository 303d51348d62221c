// Package control exposes the engine's abi.Surface over HTTP: a thin JSON
// mirror of the same flat operations a native P/Invoke caller would use,
// for operators and tooling that would rather speak HTTP than link a C ABI.
package control

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nowsound-go/nowsound/internal/abi"
	"github.com/nowsound-go/nowsound/internal/logging"
)

// Server wraps an echo.Echo routed against a single abi.Surface.
type Server struct {
	Echo    *echo.Echo
	surface *abi.Surface
}

// New builds a Server routed against surface. Call Start to listen.
func New(surface *abi.Surface) *Server {
	s := &Server{
		Echo:    echo.New(),
		surface: surface,
	}
	s.Echo.HideBanner = true
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger := logging.ForService("control")
			if v.Error != nil {
				logger.Warn("request failed", "uri", v.URI, "status", v.Status, "error", v.Error)
			} else {
				logger.Debug("request", "uri", v.URI, "status", v.Status)
			}
			return nil
		},
	}))
	s.Echo.HTTPErrorHandler = s.errorHandler

	s.registerRoutes()
	return s
}

func (s *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	message := err.Error()
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		message = fmt.Sprint(he.Message)
	}
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]string{"error": message})
	}
}

func (s *Server) registerRoutes() {
	s.Echo.GET("/version", s.getVersion)

	s.Echo.GET("/graph/state", s.getGraphState)
	s.Echo.POST("/graph/initialize", s.postGraphInitialize)
	s.Echo.POST("/graph/create", s.postGraphCreate)
	s.Echo.POST("/graph/start", s.postGraphStart)
	s.Echo.GET("/graph/time", s.getGraphTime)

	s.Echo.POST("/tracks", s.postTrackCreate)
	s.Echo.GET("/tracks/:id", s.getTrackInfo)
	s.Echo.POST("/tracks/:id/finish-recording", s.postTrackFinishRecording)
	s.Echo.PUT("/tracks/:id/muted", s.putTrackMuted)
	s.Echo.PUT("/tracks/:id/pan", s.putTrackPan)
	s.Echo.DELETE("/tracks/:id", s.deleteTrack)
}

// Start begins listening on addr. It blocks until the server stops or
// errors; callers typically run it on its own goroutine.
func (s *Server) Start(addr string) error {
	return s.Echo.Start(addr)
}

// Close shuts the HTTP server down.
func (s *Server) Close() error {
	return s.Echo.Close()
}
