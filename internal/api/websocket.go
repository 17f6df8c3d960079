package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"signal-relay/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsFrame is one streamed bus message, tagged with its topic.
type wsFrame struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

var streamTopics = []events.Topic{
	events.TopicTradeOpened,
	events.TopicTradeClosed,
	events.TopicEventIgnored,
	events.TopicPriceUpdate,
	events.TopicBreakerFrozen,
	events.TopicSetupDisabled,
}

// websocket streams every ledger lifecycle event to the connected client.
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

	// Fan the topics into one channel so a single write loop serves the
	// connection.
	merged := make(chan wsFrame, 100)
	done := make(chan struct{})
	defer close(done)

	for _, topic := range streamTopics {
		stream, unsub := s.Bus.Subscribe(topic, 100)
		defer unsub()
		go func(topic events.Topic, stream <-chan any) {
			for msg := range stream {
				select {
				case merged <- wsFrame{Topic: string(topic), Payload: msg}:
				case <-done:
					return
				}
			}
		}(topic, stream)
	}

	for {
		select {
		case frame := <-merged:
			if err := conn.WriteJSON(frame); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-c.Request.Context().Done():
			return
		}
	}
}
