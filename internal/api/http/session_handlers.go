package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/browsergrid/backend/internal/domain/session"
)

// StartSession handles POST /start. The response is a server-sent event
// stream: four marker lines (session id, CDP URL, stickiness token, VNC
// URL), one data event per agent output line, a terminal notice, and a
// closing frame. Disconnecting cancels the session.
func (h *Handlers) StartSession(c *gin.Context) {
	var req session.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	w := c.Writer
	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	sess, events, err := h.manager.Start(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("Session start failed", zap.Error(err))
		writeEvent(w, "Error: "+err.Error())
		writeClose(w)
		return
	}

	// Marker lines always precede agent output
	writeEvent(w, fmt.Sprintf("Session started with ID: %s. Container: %s", sess.ID, sess.ContainerName))
	writeEvent(w, "cdp_url: "+sess.CDPURL)
	writeEvent(w, "SESSION_STICKINESS:"+sess.StickinessToken)
	writeEvent(w, "VNC_URL:"+sess.VNCURL)

	for ev := range events {
		writeEvent(w, ev.Text)
	}

	writeClose(w)
}

// ListSessions lists all live sessions
func (h *Handlers) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sessions": h.manager.List(),
		"stats":    h.manager.Stats(),
	})
}

// GetSession returns one live session
func (h *Handlers) GetSession(c *gin.Context) {
	sessionID := c.Param("id")

	sess, ok := h.manager.Get(sessionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found or expired"})
		return
	}

	c.JSON(http.StatusOK, sess)
}

// StopSession tears a live session down
func (h *Handlers) StopSession(c *gin.Context) {
	sessionID := c.Param("id")

	if err := h.manager.Stop(sessionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found or expired"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"session_id": sessionID,
	})
}

func writeEvent(w gin.ResponseWriter, text string) {
	fmt.Fprintf(w, "data: %s\n\n", text)
	w.Flush()
}

func writeClose(w gin.ResponseWriter) {
	fmt.Fprint(w, "event: close\ndata: end\n\n")
	w.Flush()
}
