package analytics

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmartell/tradejournal/internal/journal"
	"github.com/dmartell/tradejournal/pkg/response"
)

// Service derives the analytics views from the journal state.
type Service struct {
	journal *journal.Service
}

func NewService(j *journal.Service) *Service {
	return &Service{journal: j}
}

// Evolution returns the reconstructed balance series for the current state.
func (s *Service) Evolution(now time.Time) []BalancePoint {
	return EvolutionSeries(s.journal.Entries(), s.journal.TotalBalance(), now)
}

// Metrics returns the aggregate performance view for one period.
func (s *Service) Metrics(period Period, now time.Time) Metrics {
	return ComputeMetrics(s.journal.Entries(), s.journal.TotalBalance(), period, now)
}

// GinHandlers contains HTTP handlers for the analytics endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for the analytics endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// EvolutionHandler handles GET requests for the balance-evolution series
func (h *GinHandlers) EvolutionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, h.service.Evolution(time.Now()))
	}
}

// MetricsHandler handles GET requests for performance metrics.
// Query parameter: period (all, day, week, month, year; default all)
func (h *GinHandlers) MetricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		period, err := ParsePeriod(c.Query("period"))
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		response.Success(c, h.service.Metrics(period, time.Now()))
	}
}
