package interfaces

// Conn is the transport endpoint the registry delivers frames to.
type Conn interface {
	// ID returns the connection's unique identifier
	ID() string

	// Push enqueues an encoded frame without blocking. It fails when the
	// connection is closed or its buffer is full.
	Push(frame []byte) error

	// Close shuts the connection down. It must be idempotent.
	Close() error
}

// Dispatcher defines the coordinator operations needed by transport clients
type Dispatcher interface {
	// HandleFrame decodes and handles one inbound frame from connID
	HandleFrame(connID string, frame []byte)

	// Disconnect tears down connID's session
	Disconnect(connID string)
}

// Hub defines the interface for hub operations needed by the websocket layer
type Hub interface {
	Dispatcher

	// Connect registers a new connection with the hub
	Connect(conn Conn) error
}
