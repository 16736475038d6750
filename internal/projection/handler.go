package projection

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	httperr "github.com/smart-student/stats-engine/internal/core/errors"
)

// RegisterRoutes registers all projection API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/api/stats/summary", s.HandleSummary)
}

// HandleSummary handles GET /api/stats/summary
// Query parameters: year, includeMonthly, includeCourses
func (s *Service) HandleSummary(c *gin.Context) {
	var req SummaryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	resp, err := s.Summary(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidQuery) {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidQueryError,
				Message:   "Invalid summary query",
				Details:   err.Error(),
			})
			return
		}

		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to read statistics",
			Details:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}
