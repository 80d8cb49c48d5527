package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/atri1011/datafx/internal/domain"
	"github.com/atri1011/datafx/internal/export"
	apperrors "github.com/atri1011/datafx/pkg/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxHistoryLimit = 100

func errorBody(message string) gin.H {
	return gin.H{"error": message}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"analyzer": s.deps.Analyzer.Status(),
	})
}

func (s *Server) getAnalysis(c *gin.Context) {
	result, lastErr := s.deps.Analyzer.Latest()
	if result == nil {
		body := errorBody("no analysis available yet")
		if lastErr != nil {
			body["last_error"] = lastErr.Error()
		}
		c.JSON(http.StatusNotFound, body)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) refresh(c *gin.Context) {
	result, err := s.deps.Analyzer.Refresh(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, errorBody(err.Error()))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) getCharts(c *gin.Context) {
	charts, ok := s.deps.Charts.Snapshot()
	if !ok {
		c.JSON(http.StatusNotFound, errorBody("no charts available yet"))
		return
	}
	c.JSON(http.StatusOK, charts)
}

func (s *Server) export(c *gin.Context) {
	format := c.Param("format")
	if !export.IsSupported(format) {
		c.JSON(http.StatusBadRequest, errorBody(fmt.Sprintf("unsupported export format %q", format)))
		return
	}

	result, _ := s.deps.Analyzer.Latest()
	if result == nil {
		c.JSON(http.StatusNotFound, errorBody(export.ErrNoData.Error()))
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, result); err != nil {
		if errors.Is(err, export.ErrNoData) {
			c.JSON(http.StatusNotFound, errorBody(err.Error()))
			return
		}
		s.logger.Error("Export failed", zap.String("format", format), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorBody("export failed"))
		return
	}

	name := export.FileName(format, s.deps.Now())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, export.ContentType(format), buf.Bytes())
}

func (s *Server) getConfig(c *gin.Context) {
	cfg, err := s.deps.Config.LoadUserConfig(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg.Masked())
}

func (s *Server) putConfig(c *gin.Context) {
	var patch domain.UserConfigPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	ctx := c.Request.Context()
	if patch.AIAPIKey != nil {
		current, err := s.deps.Config.LoadUserConfig(ctx)
		if err != nil {
			s.writeError(c, err)
			return
		}
		// a client echoing the masked key back keeps the stored one
		if current.AIAPIKey != "" && *patch.AIAPIKey == current.Masked().AIAPIKey {
			patch.AIAPIKey = nil
		}
	}

	saved, err := s.deps.Config.UpdateUserConfig(ctx, patch)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved.Masked())
}

func (s *Server) listHistory(c *gin.Context) {
	if s.deps.History == nil {
		c.JSON(http.StatusNotFound, errorBody("history is disabled"))
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, errorBody("limit must be a positive integer"))
		return
	}
	limit = min(limit, maxHistoryLimit)

	runs, err := s.deps.History.Recent(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) getHistory(c *gin.Context) {
	if s.deps.History == nil {
		c.JSON(http.StatusNotFound, errorBody("history is disabled"))
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid id"))
		return
	}

	result, err := s.deps.History.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if result == nil {
		c.JSON(http.StatusNotFound, errorBody("run not found"))
		return
	}
	c.JSON(http.StatusOK, result)
}

// writeError maps typed errors to status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	var validation *apperrors.ValidationError
	if errors.As(err, &validation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message, "field": validation.Field})
		return
	}

	s.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
}
