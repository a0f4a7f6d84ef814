package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	faxdomain "github.com/irensaltali/fax-app-backend/internal/fax/domain"
	"github.com/irensaltali/fax-app-backend/internal/principal"
)

func (s *Server) GetCredits(c *gin.Context) {
	caller, ok := principal.FromContext(c.Request.Context())
	if !ok || caller.IsZero() {
		AbortWithError(c, faxdomain.ErrMissingUser)
		return
	}

	balance, err := s.creditSvc.Summary(c.Request.Context(), caller.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credits": balance})
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
