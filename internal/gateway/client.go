// internal/gateway/client.go
//
// One connected websocket client. Writes are serialized with a mutex
// because gorilla connections allow a single concurrent writer.
package gateway

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type client struct {
	id   string
	conn *websocket.Conn

	mu sync.Mutex // guards conn writes
}

// send marshals an envelope and writes it. On failure the connection is
// closed; the read loop notices and runs disconnect cleanup.
func (c *client) send(msgType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("type", msgType).Msg("marshal outgoing message")
		return
	}
	frame, err := json.Marshal(Envelope{Type: msgType, Data: data})
	if err != nil {
		log.Error().Err(err).Str("type", msgType).Msg("marshal envelope")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		log.Debug().Err(err).Str("connId", c.id).Msg("write failed, closing connection")
		_ = c.conn.Close()
	}
}
