package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"laundry-backend/models"
	"laundry-backend/realtime"
	"laundry-backend/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebSocketHandler upgrades the connection and parks it in the hub until
// the client goes away. Clients only receive; inbound frames are drained
// and dropped.
func WebSocketHandler(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.RespondErrorWithStatus(c, http.StatusBadRequest, err)
		return
	}

	role := "UNKNOWN"
	if v, ok := c.Get("role"); ok {
		if r, ok := v.(models.Role); ok {
			role = string(r)
		}
	}

	realtime.RegisterClient(conn, role)
	defer realtime.UnregisterClient(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
