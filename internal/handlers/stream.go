package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// StreamEvents serves revalidation events as server-sent events.
func (h *Handler) StreamEvents(c *gin.Context) {
	if h.bus == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "revalidation stream disabled"})
		return
	}
	events, cancel := h.bus.Subscribe(c.Request.Context())
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.opts.Heartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case evt, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(evt.Type, evt)
			return true
		case <-heartbeat.C:
			_, _ = io.WriteString(w, ": keep-alive\n\n")
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
