package blogapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// routes is the catalog returned for unmatched paths.
var routes = []string{
	"GET /api",
	"GET /api/blogs",
	"GET /api/blogs/:id",
	"GET /api/blogs/title/:title",
	"GET /api/blogs/search/:query",
	"GET /api/stats",
	"GET /api/titles",
	"GET /health",
}

type catalogResponse struct {
	Success         bool              `json:"success"`
	Message         string            `json:"message"`
	Version         string            `json:"version"`
	Endpoints       map[string]string `json:"endpoints"`
	QueryParameters map[string]string `json:"queryParameters"`
}

type routeNotFoundResponse struct {
	Success         bool     `json:"success"`
	Message         string   `json:"message"`
	AvailableRoutes []string `json:"availableRoutes"`
}

type healthResponse struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Database  *databaseHealth `json:"database,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type databaseHealth struct {
	Connected bool   `json:"connected"`
	Name      string `json:"name"`
}

// requestError attaches the response message for a failed request to the
// error that caused it.
type requestError struct {
	Message string
	Err     error
}

func (e *requestError) Error() string { return e.Message + ": " + e.Err.Error() }
func (e *requestError) Unwrap() error { return e.Err }

func failed(message string, err error) error {
	return &requestError{Message: message, Err: err}
}

func (a *App) handleCatalog(c echo.Context) error {
	return c.JSON(http.StatusOK, catalogResponse{
		Success: true,
		Message: a.Config.Name + " Documentation",
		Version: a.Config.Version,
		Endpoints: map[string]string{
			"GET /api/blogs":               "Get all blogs (with pagination)",
			"GET /api/blogs/:id":           "Get single blog by ID",
			"GET /api/blogs/title/:title":  "Get blog by title",
			"GET /api/blogs/search/:query": "Search blogs by title or content",
			"GET /api/stats":               "Get blog statistics",
			"GET /api/titles":              "Get all blog titles",
			"GET /health":                  "Health check",
		},
		QueryParameters: map[string]string{
			"pagination": "page, limit",
			"sorting":    "sortBy, sortOrder",
			"search":     "page, limit",
		},
	})
}

func (a *App) handleListBlogs(c echo.Context) error {
	q := ParseListQuery(c.QueryParam("page"), c.QueryParam("limit"), c.QueryParam("sortBy"), c.QueryParam("sortOrder"))
	page, err := a.Service.List(c.Request().Context(), q)
	if err != nil {
		return failed("Failed to fetch blogs", err)
	}
	return c.JSON(http.StatusOK, Envelope{Success: true, Data: page.Blogs, Pagination: page.Pagination})
}

func (a *App) handleSearchBlogs(c echo.Context) error {
	q, err := ParseSearchQuery(pathParam(c, "query"), c.QueryParam("page"), c.QueryParam("limit"))
	if err != nil {
		return err
	}
	page, err := a.Service.Search(c.Request().Context(), q)
	if err != nil {
		return failed("Failed to search blogs", err)
	}
	return c.JSON(http.StatusOK, Envelope{Success: true, Data: page.Blogs, Pagination: page.Pagination})
}

func (a *App) handleBlogByTitle(c echo.Context) error {
	blog, err := a.Service.GetByTitle(c.Request().Context(), pathParam(c, "title"))
	if err != nil {
		return failed("Failed to fetch blog", err)
	}
	return c.JSON(http.StatusOK, Envelope{Success: true, Data: blog})
}

func (a *App) handleBlog(c echo.Context) error {
	blog, err := a.Service.Get(c.Request().Context(), pathParam(c, "id"))
	if err != nil {
		return failed("Failed to fetch blog", err)
	}
	return c.JSON(http.StatusOK, Envelope{Success: true, Data: blog})
}

func (a *App) handleStats(c echo.Context) error {
	stats, err := a.Service.Stats(c.Request().Context())
	if err != nil {
		return failed("Failed to fetch statistics", err)
	}
	return c.JSON(http.StatusOK, Envelope{Success: true, Data: stats})
}

func (a *App) handleTitles(c echo.Context) error {
	titles, err := a.Service.Titles(c.Request().Context())
	if err != nil {
		return failed("Failed to fetch titles", err)
	}
	return c.JSON(http.StatusOK, Envelope{Success: true, Data: titles})
}

func (a *App) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := a.Service.Ping(ctx); err != nil {
		a.Logger.Error("health check failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, healthResponse{
			Success:   false,
			Message:   "Database connection failed",
			Timestamp: time.Now().UTC(),
			Error:     underlying(err).Error(),
		})
	}
	return c.JSON(http.StatusOK, healthResponse{
		Success:   true,
		Message:   a.Config.Name + " is running",
		Timestamp: time.Now().UTC(),
		Database:  &databaseHealth{Connected: true, Name: a.Config.DatabaseName},
	})
}

// pathParam returns the named path parameter. Echo leaves parameters
// escaped when the request path carried encoded characters such as %2F.
func pathParam(c echo.Context, name string) string {
	v := c.Param(name)
	if c.Request().URL.RawPath == "" {
		return v
	}
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

// underlying strips the StoreError wrapper so clients see the driver's
// message.
func underlying(err error) error {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Err
	}
	return err
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := a.errorResponse(err)

	req := c.Request()
	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("uri", req.RequestURI),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		a.Logger.Error("request failed", fields...)
	} else {
		a.Logger.Debug("request rejected", fields...)
	}

	if req.Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		a.Logger.Error("write error response", zap.Error(err))
	}
}

// errorResponse maps an error returned by a handler or middleware to a
// status code and JSON body.
func (a *App) errorResponse(err error) (int, any) {
	var (
		ve *ValidationError
		se *StoreError
		re *requestError
		he *echo.HTTPError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, Envelope{Success: false, Message: ve.Message}
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, Envelope{Success: false, Message: "Blog not found"}
	case errors.As(err, &se):
		a.metrics.storeErrors.WithLabelValues(se.Op).Inc()
		msg := "Internal server error"
		if errors.As(err, &re) {
			msg = re.Message
		}
		return http.StatusInternalServerError, Envelope{Success: false, Message: msg, Error: se.Err.Error()}
	case errors.As(err, &he):
		if he.Code == http.StatusNotFound || he.Code == http.StatusMethodNotAllowed {
			return http.StatusNotFound, routeNotFoundResponse{
				Success:         false,
				Message:         "Route not found",
				AvailableRoutes: routes,
			}
		}
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
		env := Envelope{Success: false, Message: msg}
		if he.Internal != nil {
			env.Error = he.Internal.Error()
		}
		return he.Code, env
	default:
		msg := "Internal server error"
		if errors.As(err, &re) {
			msg = re.Message
			err = re.Err
		}
		return http.StatusInternalServerError, Envelope{Success: false, Message: msg, Error: fmt.Sprint(err)}
	}
}
