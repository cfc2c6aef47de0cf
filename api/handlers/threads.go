package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/makedealcrm/dealstack/internal/tracing"
	"github.com/makedealcrm/dealstack/services/threads"
)

type ThreadHandler struct {
	tracker *threads.Tracker
}

func NewThreadHandler(tracker *threads.Tracker) *ThreadHandler {
	return &ThreadHandler{tracker: tracker}
}

// GetThreadSummary returns aggregate information about one thread
func (h *ThreadHandler) GetThreadSummary() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "ThreadHandler.GetThreadSummary")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		summary, err := h.tracker.GetThreadSummary(ctx, c.Param("id"))
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if summary == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
			return
		}

		c.JSON(http.StatusOK, summary)
	}
}
