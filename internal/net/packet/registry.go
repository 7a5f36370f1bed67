package packet

import (
	"fmt"

	"go.uber.org/zap"
)

// SessionState represents the session's current protocol phase.
type SessionState int

const (
	StateConnected     SessionState = iota // TCP accepted, not yet authenticated
	StateLobby                             // logged in, sitting in the global lobby
	StateRoom                              // member of a public room, waiting
	StateInGame                            // room simulation running
	StateDisconnecting
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "Connected"
	case StateLobby:
		return "Lobby"
	case StateRoom:
		return "Room"
	case StateInGame:
		return "InGame"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// HandlerFunc is the callback signature for packet handlers.
// The session pointer is passed as an opaque interface to avoid import cycles.
type HandlerFunc func(sess any, p *Packet)

type handlerEntry struct {
	fn            HandlerFunc
	allowedStates map[SessionState]bool
}

// Registry maps opcodes to handlers with state-based access control.
type Registry struct {
	handlers map[OpCode]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[OpCode]*handlerEntry),
		log:      log,
	}
}

// Register maps an opcode to a handler, restricted to the given session states.
func (reg *Registry) Register(op OpCode, states []SessionState, fn HandlerFunc) {
	allowed := make(map[SessionState]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	reg.handlers[op] = &handlerEntry{
		fn:            fn,
		allowedStates: allowed,
	}
}

// Dispatch finds the handler for the packet's opcode, validates the session
// state, and calls the handler. ErrUnknownOpcode when no handler is mapped;
// the caller logs and drops, the session stays open.
func (reg *Registry) Dispatch(sess any, state SessionState, p *Packet) error {
	reg.log.Debug("收到封包",
		zap.String("op", p.Header.Op.String()),
		zap.Int("size", p.BodyLen()),
		zap.String("state", state.String()),
	)

	entry, ok := reg.handlers[p.Header.Op]
	if !ok {
		return fmt.Errorf("%w: 0x%02X", ErrUnknownOpcode, byte(p.Header.Op))
	}

	if !entry.allowedStates[state] {
		reg.log.Warn("操作碼在此狀態下不允許",
			zap.String("op", p.Header.Op.String()),
			zap.String("state", state.String()),
		)
		return fmt.Errorf("opcode %s not allowed in state %s", p.Header.Op, state)
	}

	return reg.safeCall(entry.fn, sess, p)
}

// safeCall executes a handler with panic recovery to prevent a single
// bad packet from crashing the entire game loop.
func (reg *Registry) safeCall(fn HandlerFunc, sess any, p *Packet) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("處理器 panic 已恢復",
				zap.String("op", p.Header.Op.String()),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for opcode %s: %v", p.Header.Op, rec)
		}
	}()
	fn(sess, p)
	return nil
}
