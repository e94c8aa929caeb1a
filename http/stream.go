package http

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const streamWriteWait = 10 * time.Second

// classMessage carries the points of one spiral arm.
type classMessage struct {
	Class int         `json:"class"`
	X     [][]float64 `json:"x"`
	Y     []int       `json:"y"`
}

type doneMessage struct {
	Done   bool `json:"done"`
	Points int  `json:"points"`
}

// handleSpiralStream sends a spiral dataset over a websocket, one message per
// class followed by a done message, then closes the connection.
func (a *API) handleSpiralStream(w http.ResponseWriter, r *http.Request) {
	cfg, err := spiralConfigFromQuery(r.URL.Query(), a.Defaults().Spiral)
	if err != nil {
		respondError(w, err)
		return
	}
	dataset, err := a.cache.Get(cfg)
	if err != nil {
		respondError(w, err)
		return
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		a.requestLogger(r).Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	logger := a.requestLogger(r)
	for c := 0; c < dataset.Classes; c++ {
		points, labels := dataset.Class(c)
		conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := conn.WriteJSON(classMessage{Class: c, X: points, Y: labels}); err != nil {
			logger.Warn("websocket write failed", zap.Int("class", c), zap.Error(err))
			return
		}
	}
	a.metrics.RecordSpiral(dataset.Len())

	conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	if err := conn.WriteJSON(doneMessage{Done: true, Points: dataset.Len()}); err != nil {
		logger.Warn("websocket write failed", zap.Error(err))
		return
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(streamWriteWait))
}
