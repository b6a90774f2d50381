package clipboard

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemory_Copy(t *testing.T) {
	m := &Memory{}
	assert.Empty(t, m.Last())

	assert.NoError(t, m.Copy(context.Background(), "https://wedplan.example/drinks?guests=10"))
	assert.NoError(t, m.Copy(context.Background(), "https://wedplan.example/drinks?guests=20"))
	assert.Equal(t, "https://wedplan.example/drinks?guests=20", m.Last())
}

func TestMemory_CancelledContext(t *testing.T) {
	m := &Memory{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, m.Copy(ctx, "link"), context.Canceled)
	assert.Empty(t, m.Last())
}

func TestMemory_ConcurrentCopies(t *testing.T) {
	m := &Memory{}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Copy(context.Background(), "link")
		}()
	}
	wg.Wait()
	assert.Equal(t, "link", m.Last())
}

func TestSystem_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, System{}.Copy(ctx, "link"), context.Canceled)
}
