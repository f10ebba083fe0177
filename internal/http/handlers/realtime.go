package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/firstflame-backend/internal/platform/ctxutil"
	"github.com/yungbote/firstflame-backend/internal/platform/logger"
	"github.com/yungbote/firstflame-backend/internal/realtime"
)

type RealtimeHandler struct {
	Log *logger.Logger
	Hub *realtime.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &RealtimeHandler{
		Log: log.With("handler", "RealtimeHandler"),
		Hub: hub,
	}
}

// GET /api/ritual/stream
//
// Every connection gets its own hub client. Tabs of one login share a session id, so a
// new stream never replaces an existing one; each is released when its request ends.
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "not authenticated", "code": "unauthorized"}})
		return
	}
	userID := rd.UserID
	channel := realtime.UserChannel(userID)

	client := h.Hub.NewSSEClient(userID)
	defer h.Hub.CloseClient(client)

	h.Hub.AddChannel(client, channel)
	h.Log.Debug("SSE stream open", "user_id", userID, "session_id", rd.SessionID, "client_id", client.ID)

	// Every (re)connect starts with a ready so the client refetches anything it missed.
	h.Hub.Send(client, realtime.SSEMessage{Channel: channel, Event: realtime.SSEEventReady})

	h.Hub.ServeHTTP(c.Writer, c.Request, client)
}
