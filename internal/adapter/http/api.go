package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/couchcryptid/ccaa-covid-etl/internal/domain"
)

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/national", s.handleNational)
		v1.GET("/summary", s.handleSummary)
		v1.GET("/regions", s.handleListRegions)
		v1.GET("/regions/:name", s.handleGetRegion)
		v1.GET("/latest", s.handleLatest)
		v1.POST("/refresh", s.handleRefresh)
	}
}

// snapshot writes 503 and returns nil when nothing has been published yet.
func (s *Server) snapshot(c *gin.Context) *domain.Snapshot {
	snap := s.store.Current()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no snapshot published yet"})
	}
	return snap
}

func snapshotMeta(snap *domain.Snapshot, count int) gin.H {
	return gin.H{
		"generated_at": snap.GeneratedAt.Format(time.RFC3339),
		"source":       snap.Source,
		"policy":       snap.Policy,
		"count":        count,
	}
}

// GET /api/v1/national
func (s *Server) handleNational(c *gin.Context) {
	snap := s.snapshot(c)
	if snap == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": snap.National,
		"meta": snapshotMeta(snap, snap.National.Len()),
	})
}

// GET /api/v1/summary
func (s *Server) handleSummary(c *gin.Context) {
	snap := s.snapshot(c)
	if snap == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": snap.Summary.Rows,
		"meta": snapshotMeta(snap, len(snap.Summary.Rows)),
	})
}

// GET /api/v1/regions
func (s *Server) handleListRegions(c *gin.Context) {
	regions := s.registry.Regions()
	c.JSON(http.StatusOK, gin.H{
		"data": regions,
		"meta": gin.H{"count": len(regions)},
	})
}

// GET /api/v1/regions/:name
func (s *Server) handleGetRegion(c *gin.Context) {
	name := c.Param("name")
	code, ok := s.registry.Code(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown region: " + name})
		return
	}

	snap := s.snapshot(c)
	if snap == nil {
		return
	}

	table, err := snap.Regions.Region(name)
	if errors.Is(err, domain.ErrUnknownRegion) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	cartoID, _ := s.registry.CartoID(code)
	meta := snapshotMeta(snap, table.Len())
	meta["region"] = name
	meta["code"] = code
	meta["carto_id"] = cartoID
	meta["empty"] = table.Empty()

	c.JSON(http.StatusOK, gin.H{
		"data": table,
		"meta": meta,
	})
}

// GET /api/v1/latest
func (s *Server) handleLatest(c *gin.Context) {
	snap := s.snapshot(c)
	if snap == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": snap.Latest,
		"meta": snapshotMeta(snap, len(snap.Latest)),
	})
}

// POST /api/v1/refresh
func (s *Server) handleRefresh(c *gin.Context) {
	snap, err := s.store.Refresh(c.Request.Context())
	if err != nil {
		s.logger.Error("refresh request failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	meta := snapshotMeta(snap, snap.National.Len())
	meta["dates"] = len(snap.Summary.Rows)
	c.JSON(http.StatusOK, gin.H{
		"data": snap.Stats,
		"meta": meta,
	})
}
