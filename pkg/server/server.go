// Package server exposes a milestone store over the HTTP contract consumed by
// store.Remote.
package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"tableflip.dev/pomo/pkg/milestone"
	"tableflip.dev/pomo/pkg/store"
)

const maxBodySize = 64 << 10

// Register wires the milestone routes on the provided Echo instance.
func Register(e *echo.Echo, st store.Store, logger *log.Logger) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	e.Use(requestLog(logger))

	e.GET("/healthz", healthz(st))
	e.GET("/projects/:projectId/milestones", listMilestones(st))
	e.POST("/projects/:projectId/milestones", createMilestone(st))
	e.GET("/milestones/:id", getMilestone(st))
	e.PUT("/milestones/:id", updateMilestone(st))
	e.DELETE("/milestones/:id", deleteMilestone(st))
}

func healthz(st store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := st.List(c.Request().Context(), "healthz"); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}

func listMilestones(st store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		ms, err := st.List(c.Request().Context(), c.Param("projectId"))
		if err != nil {
			return writeError(c, err)
		}
		if ms == nil {
			ms = []milestone.Milestone{}
		}
		return c.JSON(http.StatusOK, ms)
	}
}

func createMilestone(st store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var d milestone.Draft
		if err := decodeBody(c, &d); err != nil {
			return writeError(c, err)
		}
		m, err := st.Create(c.Request().Context(), c.Param("projectId"), d)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, m)
	}
}

func getMilestone(st store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		m, err := st.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, m)
	}
}

func updateMilestone(st store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var p milestone.Patch
		if err := decodeBody(c, &p); err != nil {
			return writeError(c, err)
		}
		m, err := st.Update(c.Request().Context(), c.Param("id"), p)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, m)
	}
}

// deleteMilestone answers 404 for ids the store has never seen so clients can
// tell a typo from a repeat; store.Remote folds that back into success.
func deleteMilestone(st store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id := c.Param("id")
		if _, err := st.Get(ctx, id); err != nil {
			return writeError(c, err)
		}
		if err := st.Remove(ctx, id); err != nil {
			return writeError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, maxBodySize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errInvalidBody{cause: err}
	}
	return nil
}

type errInvalidBody struct {
	cause error
}

func (e errInvalidBody) Error() string {
	return "invalid body: " + e.cause.Error()
}

func (e errInvalidBody) Unwrap() error {
	return milestone.ErrValidation
}

// StatusCode maps the milestone error taxonomy onto HTTP.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, milestone.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, milestone.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, milestone.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, milestone.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, err error) error {
	c.Set(errorKey, err)
	code := StatusCode(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = http.StatusText(code)
	}
	return c.JSON(code, store.ErrorBody{Error: msg})
}

const errorKey = "pomo.error"

func requestLog(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			fields := log.Fields{
				"method":      c.Request().Method,
				"route":       c.Path(),
				"status":      c.Response().Status,
				"duration_ms": time.Since(start).Milliseconds(),
			}
			if cause, ok := c.Get(errorKey).(error); ok {
				fields["error"] = cause.Error()
			} else if err != nil {
				fields["error"] = err.Error()
			}
			entry := logger.WithFields(fields)
			if c.Response().Status >= http.StatusInternalServerError {
				entry.Warn("milestones.request")
			} else {
				entry.Info("milestones.request")
			}
			return nil
		}
	}
}
