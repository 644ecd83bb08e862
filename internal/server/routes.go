package server

import (
	"net/http"

	"github.com/berfenger/solarpoll/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/reading", s.ReadingHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, s.requestTimeout).Result()
	if err != nil {
		s.logger.Warn("health check unanswered", zap.Error(err))
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

type readingResponse struct {
	State   domain.CycleState `json:"state"`
	Reading domain.Reading    `json:"reading"`
}

// ReadingHandler returns the last published reading. It never waits for a
// running cycle.
func (s *Server) ReadingHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetLastReadingRequest{}, s.requestTimeout).Result()
	if err != nil {
		s.logger.Warn("last reading unanswered", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	}
	response, ok := res.(domain.GetLastReadingResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "unexpected response"})
	}
	return c.JSON(http.StatusOK, readingResponse{
		State:   response.State,
		Reading: response.Reading,
	})
}
