package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedRequestIDGenerator_ReturnsSameID(t *testing.T) {
	gen := NewFixedRequestIDGenerator("req-123")

	assert.Equal(t, "req-123", gen.Generate())
	assert.Equal(t, "req-123", gen.Generate())
}

func TestFixedRequestIDGenerator_EmptyDefault(t *testing.T) {
	gen := NewFixedRequestIDGenerator("")
	assert.Equal(t, "test-request", gen.Generate())
}

func TestFixedRequestIDGenerator_ThreadSafe(t *testing.T) {
	gen := NewFixedRequestIDGenerator("shared")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "shared", gen.Generate())
			}
		}()
	}
	wg.Wait()
}
