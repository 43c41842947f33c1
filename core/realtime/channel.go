package realtime

import "context"

// ConnState is the lifecycle state of the push connection. Transitions are
// reported through Handlers callbacks, never polled.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateReconnecting ConnState = "reconnecting"
	StateFailed       ConnState = "failed"
)

// Handlers bundles the callbacks invoked by a Channel. Any of them may be
// nil. Callbacks are invoked sequentially; a handler is never re-entered
// concurrently for the same channel.
type Handlers struct {
	OnMessage    func(Event)
	OnConnect    func()
	OnDisconnect func()
	OnError      func(error)
}

// Channel delivers a stream of typed events over an unreliable push
// transport with self-healing reconnection.
type Channel interface {
	// Connect opens the channel. It is idempotent: when already connected
	// it returns immediately without reopening.
	Connect(ctx context.Context, h Handlers) error

	// Disconnect closes the channel and suppresses any further reconnect
	// attempt or callback invocation. It is idempotent.
	Disconnect()

	// Send delivers a payload on a best-effort basis. It never blocks on
	// the network and never returns an error to the caller.
	Send(payload any)

	// State returns the current connection state.
	State() ConnState
}
