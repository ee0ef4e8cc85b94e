package app

import (
	"errors"
	"sync"
)

// ErrNoHandler is returned when a payload matches no command and no fallback is set
var ErrNoHandler = errors.New("no handler")

// CommandHandler handles one received payload
type CommandHandler func(payload []byte) error

// Command is selected by the first byte of a received payload
type Command struct {
	Key     byte
	Name    string
	Handler CommandHandler
}

// CommandTable maps leading bytes to handlers. Payloads whose first byte
// is not registered go to the fallback.
type CommandTable struct {
	mu       sync.RWMutex
	commands map[byte]*Command
	order    []byte
	fallback CommandHandler
}

// NewCommandTable creates an empty table
func NewCommandTable() *CommandTable {
	return &CommandTable{
		commands: make(map[byte]*Command),
	}
}

// Register adds or replaces the command for key
func (t *CommandTable) Register(key byte, name string, handler CommandHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.commands[key]; !exists {
		t.order = append(t.order, key)
	}
	t.commands[key] = &Command{
		Key:     key,
		Name:    name,
		Handler: handler,
	}
}

// SetFallback installs the handler for unregistered leading bytes
func (t *CommandTable) SetFallback(handler CommandHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fallback = handler
}

// Lookup retrieves a command by key
func (t *CommandTable) Lookup(key byte) (*Command, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cmd, ok := t.commands[key]
	return cmd, ok
}

// Count returns the number of registered commands
func (t *CommandTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.commands)
}

// Keys returns the registered keys in registration order
func (t *CommandTable) Keys() []byte {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]byte(nil), t.order...)
}

// Dispatch calls the handler selected by payload[0]. An empty payload is ignored.
func (t *CommandTable) Dispatch(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}

	t.mu.RLock()
	cmd, ok := t.commands[payload[0]]
	fallback := t.fallback
	t.mu.RUnlock()

	if ok {
		return cmd.Handler(payload)
	}
	if fallback != nil {
		return fallback(payload)
	}
	return ErrNoHandler
}
