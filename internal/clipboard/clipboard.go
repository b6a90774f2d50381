// Package clipboard implements the share-link clipboard collaborator.
package clipboard

import (
	"context"
	"fmt"
	"sync"

	"github.com/atotto/clipboard"
)

// System writes to the operating system clipboard.
type System struct{}

// Copy places text on the system clipboard.
func (System) Copy(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if clipboard.Unsupported {
		return fmt.Errorf("no clipboard utility available on this system")
	}
	return clipboard.WriteAll(text)
}

// Memory keeps the last copied value. It is used where no desktop clipboard
// exists, such as the server and tests.
type Memory struct {
	mu   sync.Mutex
	last string
}

// Copy records text as the clipboard content.
func (m *Memory) Copy(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = text
	return nil
}

// Last returns the most recently copied text.
func (m *Memory) Last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
