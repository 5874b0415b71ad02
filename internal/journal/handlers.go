package journal

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmartell/tradejournal/internal/types"
	"github.com/dmartell/tradejournal/pkg/response"
)

const dateLayout = "2006-01-02"

// GinHandlers contains HTTP handlers for the journal endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for the journal endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// ListEntriesHandler handles GET requests for the full entry log plus the
// current balance, in the order received from the store
func (h *GinHandlers) ListEntriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, types.EntriesResponse{
			Entries:      h.service.Entries(),
			TotalBalance: h.service.TotalBalance(),
			Loading:      h.service.Loading(),
		})
	}
}

// CreateEntryHandler handles POST requests to record a trade result.
// A second POST for the same date updates the existing entry instead of
// creating a duplicate.
func (h *GinHandlers) CreateEntryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.NewEntryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		if _, err := time.Parse(dateLayout, req.Date); err != nil {
			response.BadRequest(c, "date must be formatted as YYYY-MM-DD")
			return
		}

		entry, err := h.service.AddEntry(c.Request.Context(), req.Date, req.Amount, req.Notes)
		response.Handle(c, entry, err)
	}
}

// UpdateEntryHandler handles PUT requests to change an entry's amount and
// notes. URL parameter: id
func (h *GinHandlers) UpdateEntryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		var req types.UpdateEntryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		entry, err := h.service.UpdateEntry(c.Request.Context(), id, req.Amount, req.Notes)
		if err == nil && entry == nil {
			response.NotFound(c, "Entry not found")
			return
		}

		response.Handle(c, entry, err)
	}
}

// DeleteEntryHandler handles DELETE requests for an entry. URL parameter: id
func (h *GinHandlers) DeleteEntryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		entry, err := h.service.DeleteEntry(c.Request.Context(), id)
		if err == nil && entry == nil {
			response.NotFound(c, "Entry not found")
			return
		}

		response.Handle(c, entry, err)
	}
}

// EntriesForDateHandler handles GET requests for all entries on one day.
// URL parameter: date (YYYY-MM-DD)
func (h *GinHandlers) EntriesForDateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		date := c.Param("date")
		if _, err := time.Parse(dateLayout, date); err != nil {
			response.BadRequest(c, "date must be formatted as YYYY-MM-DD")
			return
		}

		entries := h.service.EntriesForDate(date)
		if entries == nil {
			entries = []types.TradeEntry{}
		}
		response.Success(c, entries)
	}
}

// BalanceHandler handles GET requests for the running balance
func (h *GinHandlers) BalanceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, types.BalanceResponse{
			TotalBalance: h.service.TotalBalance(),
		})
	}
}

// CalendarHandler handles GET requests for the per-day aggregates of one
// month. URL parameters: year, month (1-12)
func (h *GinHandlers) CalendarHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		year, err := strconv.Atoi(c.Param("year"))
		if err != nil || year < 1 {
			response.BadRequest(c, "year must be a positive number")
			return
		}

		month, err := strconv.Atoi(c.Param("month"))
		if err != nil || month < 1 || month > 12 {
			response.BadRequest(c, "month must be between 1 and 12")
			return
		}

		response.Success(c, h.service.DaysWithTrades(year, month))
	}
}
