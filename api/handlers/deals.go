package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/makedealcrm/dealstack/interfaces"
	"github.com/makedealcrm/dealstack/internal/tracing"
)

type DealHandler struct {
	dealRepository interfaces.DealRepository
	noteRepository interfaces.NoteRepository
}

func NewDealHandler(dealRepository interfaces.DealRepository, noteRepository interfaces.NoteRepository) *DealHandler {
	return &DealHandler{
		dealRepository: dealRepository,
		noteRepository: noteRepository,
	}
}

// GetDeal returns one deal by id
func (h *DealHandler) GetDeal() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "DealHandler.GetDeal")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		dealID := c.Param("id")
		deal, err := h.dealRepository.GetByID(ctx, dealID)
		if err != nil {
			tracing.TraceErr(span, err)
			if strings.Contains(err.Error(), "not found") {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, deal)
	}
}

// ListDealNotes returns the notes attached to a deal
func (h *DealHandler) ListDealNotes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "DealHandler.ListDealNotes")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		notes, err := h.noteRepository.ListByDeal(ctx, c.Param("id"))
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"notes": notes})
	}
}
