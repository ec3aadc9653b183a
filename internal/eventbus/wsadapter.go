package eventbus

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fntelecomllc/kbagent/internal/logging"
	"github.com/gorilla/websocket"
)

// writeWait bounds how long a single websocket write may block, ground:
// the teacher's Client write pump using a fixed write deadline per frame.
const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades r to a websocket connection, subscribes it to bus, and
// pumps every published Event to the client as JSON until the subscription
// channel closes or a write to the connection fails. While the subscriber's
// backlog is full, Publish drops new events for it; the subscription itself
// stays open.
func ServeWS(bus *Bus, logger *logging.Logger, w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	sub := bus.Subscribe()

	go pumpClient(conn, sub, logger)
	return nil
}

func pumpClient(conn *websocket.Conn, sub *Subscription, logger *logging.Logger) {
	defer sub.Unsubscribe()
	defer conn.Close()

	for evt := range sub.Events {
		payload, err := json.Marshal(evt)
		if err != nil {
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			if logger != nil {
				logger.Warn("eventbus: websocket write failed, closing subscriber", map[string]interface{}{"error": err.Error()})
			}
			return
		}
	}
}
