package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"execution-core/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamedTopics are pushed to every websocket client. Operators watching
// the console see decisions, fills, results, and safety transitions live.
var streamedTopics = []events.Event{
	events.EventApprovalDecided,
	events.EventOrderSubmitted,
	events.EventOrderFilled,
	events.EventExecutionResult,
	events.EventKillSwitchChanged,
	events.EventReconciliationMismatch,
}

func (s *Server) websocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	defer conn.Close()

	if s.Bus == nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"bus not ready"}`))
		return
	}

	type tagged struct {
		Topic   string `json:"topic"`
		Payload any    `json:"payload"`
	}

	merged := make(chan tagged, 100)
	done := make(chan struct{})
	defer close(done)

	for _, topic := range streamedTopics {
		stream, unsub := s.Bus.Subscribe(topic, 100)
		go func(topic events.Event, stream <-chan any, unsub func()) {
			defer unsub()
			for {
				select {
				case msg, ok := <-stream:
					if !ok {
						return
					}
					select {
					case merged <- tagged{Topic: string(topic), Payload: msg}:
					case <-done:
						return
					}
				case <-done:
					return
				}
			}
		}(topic, stream, unsub)
	}

	for msg := range merged {
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("ws write error: %v", err)
			return
		}
	}
}
