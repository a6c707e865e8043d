package replcraft

import "context"

// transport is the internal interface for the physical connection to the
// server. The current implementation uses WebSocket text frames (socket.go).
type transport interface {
	// connect establishes the connection and starts the read loop.
	connect(ctx context.Context) error

	// send writes one serialized request frame to the connection.
	send(data []byte) error

	// setMessageHandler registers the callback for inbound frames.
	// The callback receives the raw frame bytes.
	setMessageHandler(fn func(data []byte))

	// onDisconnect registers a callback for when the connection drops.
	// It is not invoked for client-initiated close.
	onDisconnect(fn func(error))

	// close shuts down the connection.
	close() error
}
