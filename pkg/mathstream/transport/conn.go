package transport

import (
	"context"

	"github.com/gorilla/websocket"
)

// Conn is the minimal websocket surface the client uses.
// *websocket.Conn satisfies it directly.
type Conn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens a connection to the event endpoint.
type Dialer func(ctx context.Context, url string) (Conn, error)

// DefaultDialer dials with gorilla/websocket.
func DefaultDialer(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
