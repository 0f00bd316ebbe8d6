// Package printmode broadcasts whether a printable overlay is open, so that the layout
// can drop its navigation chrome while a page is being printed.
package printmode

import "sync"

// Coordinator holds the print-modal flag of one client.
// Set is idempotent and calls are not paired: a flag left open stays open.
type Coordinator struct {
	mu   sync.RWMutex
	open bool
}

func New() *Coordinator {
	return &Coordinator{}
}

// Read reports whether a printable overlay is open.
func (c *Coordinator) Read() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.open
}

// Set is called with true right before a printable overlay is shown, and with false once it is closed.
func (c *Coordinator) Set(open bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = open
}

// ShowNavigation is the layout's render decision: navigation chrome is shown iff no print modal is open.
func ShowNavigation(printModalOpen bool) bool {
	return !printModalOpen
}
