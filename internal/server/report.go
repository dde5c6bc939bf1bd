package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/storefront/internal/csp"
	"github.com/nao1215/storefront/internal/log"
)

func (s *Server) handleCSPReport(c *gin.Context) {
	logger := log.FromContext(c.Request.Context())

	violations, err := csp.ParseReport(c.Request.Body)
	if err != nil {
		logger.Debug("invalid csp report", "error", err)
		c.Status(http.StatusBadRequest)
		return
	}
	for _, v := range violations {
		if v.UserAgent == "" {
			v.UserAgent = c.Request.UserAgent()
		}
		if err := s.deps.Violations.Insert(c.Request.Context(), v); err != nil {
			logger.Error("store csp report", "error", err)
			c.Status(http.StatusInternalServerError)
			return
		}
		if s.deps.Metrics != nil {
			s.deps.Metrics.ObserveCSPReport(v.Directive())
		}
	}
	c.Status(http.StatusNoContent)
}
