package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/report"
	"github.com/chainguard-dev/clog"
	"github.com/gin-gonic/gin"
)

// RunStore is where report bundles live: a report directory or Postgres.
type RunStore interface {
	ListRuns(ctx context.Context) ([]string, error)
	Load(ctx context.Context, runID string) (*report.Bundle, error)
	Save(ctx context.Context, b *report.Bundle) (string, error)
}

type RunHandler struct {
	store   RunStore
	builder *report.Builder
}

func NewRunHandler(store RunStore, builder *report.Builder) *RunHandler {
	return &RunHandler{store: store, builder: builder}
}

func (h *RunHandler) List(c *gin.Context) {
	runs, err := h.store.ListRuns(c.Request.Context())
	if err != nil {
		clog.FromContext(c.Request.Context()).Errorf("Failed to list runs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"total": len(runs),
	})
}

func (h *RunHandler) Metrics(c *gin.Context) {
	if b, ok := h.load(c); ok {
		c.JSON(http.StatusOK, b.Metrics)
	}
}

func (h *RunHandler) Disagreements(c *gin.Context) {
	if b, ok := h.load(c); ok {
		c.JSON(http.StatusOK, b.Disagreements)
	}
}

func (h *RunHandler) ExploratoryDelta(c *gin.Context) {
	if b, ok := h.load(c); ok {
		c.JSON(http.StatusOK, b.ExploratoryDelta)
	}
}

func (h *RunHandler) Records(c *gin.Context) {
	if b, ok := h.load(c); ok {
		c.JSON(http.StatusOK, gin.H{
			"runId":   b.RunID,
			"records": b.Records,
			"total":   len(b.Records),
		})
	}
}

// Summary renders the console summary tables as markdown.
func (h *RunHandler) Summary(c *gin.Context) {
	b, ok := h.load(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.RenderSummary(&buf, b); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render summary"})
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", buf.Bytes())
}

// Recompute rebuilds every report of a run from its stored records.
func (h *RunHandler) Recompute(c *gin.Context) {
	b, ok := h.load(c)
	if !ok {
		return
	}

	rebuilt := h.builder.Build(b.RunID, b.Records)
	if _, err := h.store.Save(c.Request.Context(), rebuilt); err != nil {
		clog.FromContext(c.Request.Context()).Errorf("Failed to save recomputed reports for %s: %v", b.RunID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save reports"})
		return
	}
	reportRecomputes.Inc()

	c.JSON(http.StatusOK, gin.H{
		"runId":       rebuilt.RunID,
		"generatedAt": rebuilt.GeneratedAt,
		"metrics":     rebuilt.Metrics,
	})
}

func (h *RunHandler) load(c *gin.Context) (*report.Bundle, bool) {
	runID := c.Param("id")
	if runID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run id is required"})
		return nil, false
	}

	b, err := h.store.Load(c.Request.Context(), runID)
	switch {
	case errors.Is(err, report.ErrInvalidRunID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return nil, false
	case errors.Is(err, report.ErrRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return nil, false
	case err != nil:
		clog.FromContext(c.Request.Context()).Errorf("Failed to load run %s: %v", runID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load run"})
		return nil, false
	}
	return b, true
}
