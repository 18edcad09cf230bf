package main

import (
	"fmt"
	"io"
	"sync"
)

// terminalNotifier prints integrity messages where the candidate sees them.
type terminalNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

func newTerminalNotifier(out io.Writer) *terminalNotifier {
	return &terminalNotifier{out: out}
}

func (n *terminalNotifier) Warn(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, "Warning: %s\n", message)
}

func (n *terminalNotifier) Terminal(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, "\n%s\n", message)
}
