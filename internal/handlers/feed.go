package handlers

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"cinehub/internal/apperr"
	"cinehub/internal/events"
	"cinehub/internal/middleware"
	"cinehub/internal/store"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
)

// FeedHandler streams vote and comment events to websocket clients.
type FeedHandler struct {
	hub      *events.Hub
	upgrader websocket.Upgrader
}

func NewFeedHandler(hub *events.Hub, origins []string) *FeedHandler {
	allowAll := len(origins) == 0 || slices.Contains(origins, "*")
	return &FeedHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || slices.Contains(origins, origin)
			},
		},
	}
}

// Stream handles GET /ws?collection=&id=. Both parameters are optional.
func (h *FeedHandler) Stream(c *gin.Context) {
	filter := events.Filter{Collection: c.Query("collection"), EntityID: c.Query("id")}
	if filter.Collection != "" && !slices.Contains(store.AllCollections, filter.Collection) {
		fail(c, apperr.Validation("Unknown collection"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		middleware.Log(c).WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	feed, cancel := h.hub.Subscribe(filter)
	defer cancel()

	// Clients only listen; reading is how a close is noticed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case e, ok := <-feed:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
