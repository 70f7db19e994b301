package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"platewise/internal/catalog"
	"platewise/internal/models"
)

const serviceName = "Platewise Meal Planner API"

func (s *Server) handleHome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    serviceName,
		"status":  "running",
		"version": Version,
		"endpoints": gin.H{
			"GET /":                       "API status",
			"GET /api/health":             "Health check",
			"GET /api/menu":               "Get all menu items",
			"POST /api/optimize":          "Generate single meal plan",
			"POST /api/optimize/multiple": "Generate multiple meal plans",
			"GET /api/optimize/stream":    "Stream meal plans over a websocket",
		},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	cat := s.holder.Get()
	items := 0
	if cat != nil {
		items = cat.Len()
	}
	lastSolve, _ := s.monitor.GetMetric("last_solve_status")
	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"optimizer_loaded":  cat != nil,
		"menu_items":        items,
		"last_solve_status": lastSolve,
		"metrics":           s.monitor.GetMetrics(),
	})
}

func (s *Server) handleMenu(c *gin.Context) {
	cat, ok := s.catalog(c)
	if !ok {
		return
	}
	if tag := c.Query("tag"); tag != "" {
		cat = cat.WithTag(tag)
	}
	c.JSON(http.StatusOK, gin.H{
		"total_items": cat.Len(),
		"by_meal":     cat.ByMeal(),
		"all_items":   cat.Items(),
	})
}

func (s *Server) handleOptimize(c *gin.Context) {
	cat, ok := s.catalog(c)
	if !ok {
		return
	}
	body, ok := bindPlanBody(c)
	if !ok {
		return
	}

	result, err := s.optimizer.OptimizePlan(c.Request.Context(), cat, body.request(s.defaults))
	if err != nil {
		s.logger.Error("optimize failed", "error", err, "request_id", c.GetString(requestIDKey))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleOptimizeMultiple(c *gin.Context) {
	cat, ok := s.catalog(c)
	if !ok {
		return
	}
	body, ok := bindPlanBody(c)
	if !ok {
		return
	}
	n, err := body.numPlans(s.cfg.Planner.NumPlans, s.cfg.Planner.MaxPlans)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plans, err := s.optimizer.GeneratePlans(c.Request.Context(), cat, body.request(s.defaults), n)
	if err != nil {
		s.logger.Error("plan generation failed", "error", err, "request_id", c.GetString(requestIDKey))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, PlanResponse{Status: "success", Count: len(plans), Plans: plans})
}

// catalog returns the current catalog or writes a 500 when none is loaded
func (s *Server) catalog(c *gin.Context) (*catalog.Catalog, bool) {
	cat := s.holder.Get()
	if cat == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Optimizer not initialized"})
		return nil, false
	}
	return cat, true
}

func bindPlanBody(c *gin.Context) (*planBody, bool) {
	var body planBody
	if err := c.ShouldBindJSON(&body); err != nil {
		if errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No JSON data provided"})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parameter value: " + err.Error()})
		}
		return nil, false
	}
	return &body, true
}

// PlanResponse is the body of the multiple plans route
type PlanResponse struct {
	Status string               `json:"status"`
	Count  int                  `json:"count"`
	Plans  []*models.PlanResult `json:"plans"`
}
