package services

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStoreOrdering(t *testing.T) {
	store := NewInMemoryStore()

	endpoints := []string{"http://c:1", "http://a:1", "http://b:1"}
	for _, e := range endpoints {
		require.NoError(t, store.SaveHolder(e))
	}

	holders, err := store.ListHolders()
	require.NoError(t, err)
	assert.Equal(t, endpoints, holders, "registration order must survive listing")
}

func TestInMemoryStoreDedupAndDelete(t *testing.T) {
	store := NewInMemoryStore()

	require.NoError(t, store.SaveHolder("http://a:1"))
	require.NoError(t, store.SaveHolder("http://b:1"))
	require.NoError(t, store.SaveHolder("http://a:1"))

	holders, err := store.ListHolders()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a:1", "http://b:1"}, holders)

	require.NoError(t, store.DeleteHolder("http://a:1"))
	require.NoError(t, store.DeleteHolder("http://missing:1"))

	holders, err = store.ListHolders()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://b:1"}, holders)
}

func TestInMemoryStoreConcurrent(t *testing.T) {
	store := NewInMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			store.SaveHolder(fmt.Sprintf("http://holder-%d:1", n))
		}(i)
	}
	wg.Wait()

	holders, err := store.ListHolders()
	require.NoError(t, err)
	assert.Len(t, holders, 16)
}
