package trigger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	v1 "github.com/smart-student/stats-engine/internal/api/v1"
	"github.com/smart-student/stats-engine/internal/auth"
	httperr "github.com/smart-student/stats-engine/internal/core/errors"
	"github.com/smart-student/stats-engine/internal/core/records"
	"github.com/smart-student/stats-engine/internal/core/storage"
)

const (
	msgReadBodyFailed  = "Failed to read request body"
	msgBodyTooLarge    = "Request body exceeds maximum allowed size"
	msgInvalidJSON     = "Invalid JSON body"
	msgInvalidYear     = "Invalid year"
	msgInvalidSelector = "Invalid what selector"
	msgNotConfigured   = "statistics store is not configured"
)

// triggerError carries the structured HTTP error shape from a helper back to the handler.
type triggerError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *triggerError) Error() string {
	return e.message
}

// HandleRebuild handles POST /api/stats/rebuild. The rebuild is unconditional
// and the full result is returned. A configuration failure is a soft failure
// (HTTP 200, authError); any other failure is HTTP 500 with the result body.
func (s *Service) HandleRebuild(c *gin.Context) {
	var req RebuildRequest
	if terr := s.bindBody(c, &req); terr != nil {
		writeError(c, terr)
		return
	}
	year, sel, terr := s.resolve(req)
	if terr != nil {
		writeError(c, terr)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.OnDemandTimeout)
	defer cancel()

	slog.Info("[Trigger] On-demand rebuild requested", "year", year, "selection", sel.Key())
	res := s.ctl.Rebuild(ctx, year, sel, v1.SurfaceOnDemand)

	switch {
	case res.Success:
		c.JSON(http.StatusOK, res)
	case res.AuthError:
		res.Message = msgNotConfigured
		c.JSON(http.StatusOK, res)
	default:
		c.JSON(http.StatusInternalServerError, res)
	}
}

// HandleStatus handles GET /api/stats/rebuild?year=
func (s *Service) HandleStatus(c *gin.Context) {
	year := s.currentYear()
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			writeError(c, &triggerError{
				statusCode: http.StatusBadRequest,
				errorType:  httperr.HttpInvalidQueryError,
				message:    msgInvalidYear,
				details:    err.Error(),
			})
			return
		}
		year = y
	}
	if err := v1.ValidateYear(year); err != nil {
		writeError(c, &triggerError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidQueryError,
			message:    msgInvalidYear,
			details:    err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	resp := StatusResponse{Year: year}

	cache, err := s.ctl.Cache().Read(ctx, year)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		resp.Message = "no cached statistics; POST to rebuild"
	case err != nil && storage.IsConfigError(err):
		resp.AuthError = true
		resp.Message = msgNotConfigured
		c.JSON(http.StatusOK, resp)
		return
	case err != nil:
		slog.Error("[Trigger] Failed to read stats cache", "year", year, "error", err)
		writeError(c, &triggerError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    "Failed to read statistics",
			details:    err.Error(),
		})
		return
	default:
		resp.Cached = true
		lastUpdated := cache.LastUpdated
		resp.LastUpdated = &lastUpdated
		resp.HasAttendance = cache.Attendance != nil
		resp.HasGrades = cache.Grades != nil
		resp.HasGeneral = true
	}

	ctl, err := s.ctl.Control(ctx, year)
	switch {
	case err == nil:
		resp.Control = ctl
	case !errors.Is(err, storage.ErrNotFound):
		slog.Warn("[Trigger] Failed to read rebuild control", "year", year, "error", err)
	}

	c.JSON(http.StatusOK, resp)
}

// HandleAttendanceCreated handles POST /api/stats/hooks/attendance-created.
// The body is the attendance record that was just written.
func (s *Service) HandleAttendanceCreated(c *gin.Context) {
	var doc records.Document
	if terr := s.bindBody(c, &doc); terr != nil {
		writeError(c, terr)
		return
	}

	year, ok := records.ParseYear(doc["year"])
	if !ok || v1.ValidateYear(year) != nil {
		year = s.currentYear()
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.HookTimeout)
	defer cancel()

	out, err := s.ctl.Trigger(ctx, year)
	if err != nil {
		if storage.IsConfigError(err) {
			c.JSON(http.StatusOK, HookResponse{Year: year, AuthError: true, Message: msgNotConfigured})
			return
		}
		slog.Error("[Trigger] Write hook failed", "year", year, "error", err)
		writeError(c, &triggerError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    "Failed to process write trigger",
			details:    err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, HookResponse{
		Year:         out.Year,
		Decision:     string(out.Decision),
		PendingCount: out.PendingCount,
		Result:       out.Result,
	})
}

// HandleCallable handles POST /v1/rpc/rebuildStats. Authentication is
// enforced by the verifier middleware.
func (s *Service) HandleCallable(c *gin.Context) {
	var req CallableRequest
	if terr := s.bindBody(c, &req); terr != nil {
		writeCallableError(c, terr)
		return
	}
	year, sel, terr := s.resolve(req.Data)
	if terr != nil {
		writeCallableError(c, terr)
		return
	}

	caller := ""
	if claims, ok := auth.FromContext(c); ok {
		caller = claims.Subject
	}
	slog.Info("[Trigger] Callable rebuild requested", "year", year, "selection", sel.Key(), "caller", caller)

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.CallableTimeout)
	defer cancel()

	res := s.ctl.Rebuild(ctx, year, sel, v1.SurfaceCallable)
	if res.AuthError {
		res.Message = msgNotConfigured
	}
	c.JSON(http.StatusOK, CallableResponse{Result: res})
}

// bindBody reads the request body up to the configured limit and decodes it
// into dst. An empty body leaves dst untouched.
func (s *Service) bindBody(c *gin.Context, dst interface{}) *triggerError {
	limited := io.LimitReader(c.Request.Body, s.maxBodySizeBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		slog.Error("[Trigger] Failed to read request body", "error", err)
		return &triggerError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}
	if int64(len(body)) > s.maxBodySizeBytes {
		slog.Warn("[Trigger] Request body exceeds maximum size", "size", len(body), "max", s.maxBodySizeBytes)
		return &triggerError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgBodyTooLarge,
			details: map[string]interface{}{
				"max_size_mb": s.maxBodySizeBytes / (1024 * 1024),
			},
		}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if err := c.ShouldBindJSON(dst); err != nil {
		slog.Warn("[Trigger] Invalid JSON body received", "error", err, "payload_size", len(body))
		return &triggerError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
			details:    err.Error(),
		}
	}
	return nil
}

// resolve applies defaults and validates a rebuild request. A missing or zero
// year means the current academic year.
func (s *Service) resolve(req RebuildRequest) (int, v1.Selection, *triggerError) {
	year := s.currentYear()
	if req.Year != nil && *req.Year != 0 {
		year = *req.Year
	}
	if err := v1.ValidateYear(year); err != nil {
		return 0, v1.Selection{}, &triggerError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidQueryError,
			message:    msgInvalidYear,
			details:    err.Error(),
		}
	}

	sel, err := v1.ParseSelection(req.What)
	if err != nil {
		return 0, v1.Selection{}, &triggerError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidSelector,
			message:    msgInvalidSelector,
			details:    err.Error(),
		}
	}
	return year, sel, nil
}

// writeError serializes a triggerError as the JSON HTTP response.
func writeError(c *gin.Context, err *triggerError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}

// writeCallableError serializes a triggerError in the callable protocol shape.
func writeCallableError(c *gin.Context, err *triggerError) {
	status := "INVALID_ARGUMENT"
	if err.statusCode >= http.StatusInternalServerError {
		status = "INTERNAL"
	}
	msg := err.message
	if d, ok := err.details.(string); ok {
		msg += ": " + d
	}
	c.JSON(err.statusCode, gin.H{"error": CallableError{Status: status, Message: msg}})
}
