package handler

import (
	"context"
	"net/http"
	"strconv"

	"realty/internal/model"

	"github.com/gin-gonic/gin"
)

// StatsSource provides the aggregate listing reads exposed over HTTP
type StatsSource interface {
	MarketStats(ctx context.Context) (*model.MarketStats, error)
	DistrictOverview(ctx context.Context, limit int) ([]model.AggregateStat, error)
	CompareDistricts(ctx context.Context, first, second string) (*model.DistrictComparison, error)
}

// StatsHandler handles listing statistics HTTP requests
type StatsHandler struct {
	source       StatsSource
	defaultLimit int
	maxLimit     int
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(source StatsSource, defaultLimit, maxLimit int) *StatsHandler {
	return &StatsHandler{source: source, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// Market handles GET /api/v1/stats
func (h *StatsHandler) Market(c *gin.Context) {
	stats, err := h.source.MarketStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Districts handles GET /api/v1/stats/districts?limit=N
func (h *StatsHandler) Districts(c *gin.Context) {
	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}

	stats, err := h.source.DistrictOverview(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load districts: " + err.Error()})
		return
	}
	if stats == nil {
		stats = []model.AggregateStat{}
	}
	c.JSON(http.StatusOK, stats)
}

// Compare handles GET /api/v1/stats/compare?first=Praha 1&second=Praha 8
func (h *StatsHandler) Compare(c *gin.Context) {
	cmp, err := h.source.CompareDistricts(c.Request.Context(), c.Query("first"), c.Query("second"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compare districts: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, cmp)
}
