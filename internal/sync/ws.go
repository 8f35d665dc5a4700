package sync

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // read-only public feed
	},
}

func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Warn("ws upgrade", zap.Error(err))
			return
		}

		// greet before joining the hub so this write never races a broadcast
		if err := ws.WriteMessage(websocket.TextMessage, welcome("websocket", hub.Stats().WSClients+1)); err != nil {
			_ = ws.Close()
			return
		}
		hub.AddWS(ws)
		hub.log.Info("ws client connected", zap.Stringer("addr", ws.RemoteAddr()))

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.RemoveWS(ws)
		hub.log.Info("ws client disconnected", zap.Stringer("addr", ws.RemoteAddr()))
	}
}
