package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func RegisterRoutes(s *Server) {
	s.engine.GET("/healthz", s.healthz)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	internal := s.engine.Group("/internal")
	internal.POST("/games/:id/refresh", s.refreshGame)

	v1 := s.engine.Group("/v1")
	v1.GET("/games/:id/prices", s.gamePrices)
	v1.GET("/games/:id/media", s.gameMedia)
	v1.GET("/games/:id/mappings", s.gameMappings)
}

func (s *Server) healthz(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// refreshGame kicks off an enrichment run and returns immediately. The
// pipeline reports progress only through logs and persisted state.
func (s *Server) refreshGame(c *gin.Context) {
	gameID, ok := parseID(c)
	if !ok {
		return
	}
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))

	go s.orchestrator.Run(context.Background(), gameID, force)

	c.JSON(http.StatusAccepted, gin.H{
		"game_id": gameID.String(),
		"force":   force,
	})
}

func (s *Server) gamePrices(c *gin.Context) {
	gameID, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	jurisdictions, err := s.catalog.ListOfferJurisdictions(ctx, s.db, gameID)
	if err != nil {
		s.log.Error("list offer jurisdictions failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	type priceRow struct {
		RegionCode     string `json:"region_code"`
		Currency       string `json:"currency"`
		AmountMinor    int64  `json:"amount_minor"`
		RecordedAt     string `json:"recorded_at"`
		SourceProvider string `json:"source_provider"`
	}
	rows := make([]priceRow, 0, len(jurisdictions))
	for _, oj := range jurisdictions {
		current, err := s.prices.FindCurrent(ctx, s.db, oj.ID)
		if err != nil {
			s.log.Error("find current price failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
			return
		}
		if current == nil {
			continue
		}
		rows = append(rows, priceRow{
			RegionCode:     oj.RegionCode,
			Currency:       oj.Currency,
			AmountMinor:    current.AmountMinor,
			RecordedAt:     current.RecordedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			SourceProvider: current.SourceProvider,
		})
	}
	c.JSON(http.StatusOK, gin.H{"game_id": gameID.String(), "prices": rows})
}

func (s *Server) gameMedia(c *gin.Context) {
	gameID, ok := parseID(c)
	if !ok {
		return
	}
	items, err := s.media.ListByGame(c.Request.Context(), s.db, gameID)
	if err != nil {
		s.log.Error("list media failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"game_id": gameID.String(), "media": items})
}

func (s *Server) gameMappings(c *gin.Context) {
	gameID, ok := parseID(c)
	if !ok {
		return
	}
	mappings, err := s.mappings.ListMappings(c.Request.Context(), s.db, gameID)
	if err != nil {
		s.log.Error("list mappings failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"game_id": gameID.String(), "mappings": mappings})
}

func parseID(c *gin.Context) (snowflake.ID, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game id"})
		return 0, false
	}
	return snowflake.ID(id), true
}
