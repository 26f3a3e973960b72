package typeutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	set := NewSet("a", "b")
	set.Insert("b", "c")
	assert.Equal(t, 3, set.Len())
	assert.True(t, set.Contain("a", "c"))
	assert.False(t, set.Contain("a", "d"))

	set.Remove("a", "missing")
	assert.ElementsMatch(t, []string{"b", "c"}, set.Collect())
}

func TestConcurrentSet(t *testing.T) {
	set := NewConcurrentSet[int]()
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if set.Insert(1) {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, inserted)
	assert.True(t, set.Contain(1))
	assert.Equal(t, []int{1}, set.Collect())

	assert.True(t, set.TryRemove(1))
	assert.False(t, set.TryRemove(1))
	assert.False(t, set.Contain(1))
}
