// Package shell holds the queue of host-issued commands waiting to be typed
// into the guest shell, and the encodings used to type them.
package shell

import "sync"

// Command is one pending shell command.
type Command struct {
	Text     string   `json:"text"`
	Encoding Encoding `json:"encoding"`
}

// Bytes returns the command encoded for injection.
func (c Command) Bytes() ([]byte, error) {
	return c.Encoding.Encode(c.Text)
}

// Queue is a FIFO of commands. Enqueue may be called from any goroutine while
// the engine goroutine drains it.
type Queue struct {
	mu       sync.Mutex
	commands []Command
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends a command. It always succeeds.
func (q *Queue) Enqueue(text string, enc Encoding) {
	q.mu.Lock()
	q.commands = append(q.commands, Command{Text: text, Encoding: enc})
	q.mu.Unlock()
}

// Next removes and returns the oldest command.
func (q *Queue) Next() (Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.commands) == 0 {
		return Command{}, false
	}
	c := q.commands[0]
	q.commands[0] = Command{}
	q.commands = q.commands[1:]
	return c, true
}

// Pending returns a copy of the pending commands in order.
func (q *Queue) Pending() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Command, len(q.commands))
	copy(out, q.commands)
	return out
}
