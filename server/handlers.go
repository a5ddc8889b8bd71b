package server

import (
	"errors"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"motion-logger/controller"
	"motion-logger/models"
)

// AnnouncementToggle turns spoken cues on and off. announce.Gate satisfies it.
type AnnouncementToggle interface {
	SetEnabled(on bool)
	Enabled() bool
}

type Handlers struct {
	Sequence      *controller.SequenceController
	Library       *controller.Library
	Sensors       *controller.SensorsController
	Announcements AnnouncementToggle
	// ExportDir receives exports requested over HTTP. Targets are bare
	// file names inside it.
	ExportDir string
}

type startRequest struct {
	Activities []models.ActivitySpec `json:"activities"`
}

type activityRequest struct {
	Name string `json:"name"`
}

type exportRequest struct {
	Target string `json:"target"`
}

type announcementsRequest struct {
	Enabled bool `json:"enabled"`
}

type pathResponse struct {
	Path string `json:"path"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h Handlers) Register(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	e.GET("/status", h.status)
	e.POST("/recordings/start", h.start)
	e.POST("/recordings/stop", h.stop)
	e.POST("/sequence/cancel", h.cancel)
	e.PUT("/activity", h.setActivity)
	e.PUT("/announcements", h.setAnnouncements)

	e.GET("/recordings", h.list)
	e.GET("/recordings/:name", h.info)
	e.DELETE("/recordings/:name", h.remove)
	e.POST("/recordings/:name/export", h.export)

	e.GET("/sensors", h.sensors)

	e.GET("/ws/status", h.streamStatus)
	e.GET("/ws/samples", h.streamSamples)
}

func (h Handlers) status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Sequence.Status())
}

func (h Handlers) start(c echo.Context) error {
	var req startRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		}
	}

	var (
		path string
		err  error
	)
	if len(req.Activities) == 0 {
		path, err = h.Sequence.StartRecording()
	} else {
		path, err = h.Sequence.StartSequence(req.Activities)
	}
	if err != nil {
		return failure(c, err)
	}
	return c.JSON(http.StatusCreated, pathResponse{Path: path})
}

func (h Handlers) stop(c echo.Context) error {
	path, err := h.Sequence.StopRecording()
	if err != nil {
		return failure(c, err)
	}
	return c.JSON(http.StatusOK, pathResponse{Path: path})
}

func (h Handlers) cancel(c echo.Context) error {
	if err := h.Sequence.Cancel(); err != nil {
		return failure(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h Handlers) setActivity(c echo.Context) error {
	var req activityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	h.Sequence.SetCurrentActivity(req.Name)
	return c.JSON(http.StatusOK, activityRequest{Name: h.Sequence.CurrentActivity()})
}

func (h Handlers) setAnnouncements(c echo.Context) error {
	if h.Announcements == nil {
		return c.JSON(http.StatusNotImplemented, errorResponse{Error: "announcements not available"})
	}
	var req announcementsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	h.Announcements.SetEnabled(req.Enabled)
	return c.JSON(http.StatusOK, announcementsRequest{Enabled: h.Announcements.Enabled()})
}

func (h Handlers) list(c echo.Context) error {
	list, err := h.Library.List()
	if err != nil {
		return failure(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h Handlers) info(c echo.Context) error {
	path, err := h.Library.Resolve(c.Param("name"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	info, err := h.Library.Info(path)
	if err != nil {
		return failure(c, err)
	}
	summary, err := h.Library.Summary(path)
	if err != nil {
		return failure(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"info": info, "summary": summary})
}

func (h Handlers) remove(c echo.Context) error {
	path, err := h.Library.Resolve(c.Param("name"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	if err := h.Library.Delete(path); err != nil {
		return failure(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h Handlers) export(c echo.Context) error {
	path, err := h.Library.Resolve(c.Param("name"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	var req exportRequest
	if err := c.Bind(&req); err != nil || req.Target == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "target is required"})
	}
	if h.ExportDir == "" {
		return c.JSON(http.StatusForbidden, errorResponse{Error: "export is disabled"})
	}
	target, err := controller.ResolveIn(h.ExportDir, req.Target)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	written, err := h.Library.Export(path, target)
	if err != nil {
		return failure(c, err)
	}
	return c.JSON(http.StatusOK, pathResponse{Path: written})
}

func (h Handlers) sensors(c echo.Context) error {
	if h.Sensors == nil {
		return c.JSON(http.StatusOK, []any{})
	}
	return c.JSON(http.StatusOK, h.Sensors.SensorInfo())
}

// failure maps controller errors to HTTP status codes.
func failure(c echo.Context, err error) error {
	var (
		stateErr  *models.SessionStateError
		configErr *models.ConfigError
	)
	code := http.StatusInternalServerError
	switch {
	case errors.As(err, &stateErr), errors.Is(err, models.ErrFileInUse):
		code = http.StatusConflict
	case errors.As(err, &configErr):
		code = http.StatusBadRequest
	case errors.Is(err, os.ErrNotExist):
		code = http.StatusNotFound
	}
	if code >= http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(code, errorResponse{Error: err.Error()})
}
