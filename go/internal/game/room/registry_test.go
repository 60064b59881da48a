package room

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/quizroyale/go/internal/models"
)

func TestRegistry_CreateGetDelete(t *testing.T) {
	reg := NewRegistry()

	rm, err := reg.Create("GAME1", "admin", 50, 10)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusWaiting, rm.Status())

	_, err = reg.Create("GAME1", "other", 5, 5)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	got, err := reg.Get("GAME1")
	require.NoError(t, err)
	assert.Same(t, rm, got)

	reg.Delete("GAME1")
	_, err = reg.Get("GAME1")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	assert.NotPanics(t, func() { reg.Delete("GAME1") })
	assert.NotPanics(t, func() { reg.Delete("never-existed") })
}

func TestRegistry_RejectsBlankCode(t *testing.T) {
	_, err := NewRegistry().Create("  ", "admin", 1, 1)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestRegistry_ListAndLen(t *testing.T) {
	reg := NewRegistry()
	for _, code := range []string{"C", "A", "B"} {
		_, err := reg.Create(code, "admin", 1, 1)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, reg.Len())
	rooms := reg.List()
	require.Len(t, rooms, 3)
	assert.Equal(t, "A", rooms[0].Code)
	assert.Equal(t, "C", rooms[2].Code)
}

func TestRegistry_NewCode(t *testing.T) {
	reg := NewRegistry()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code := reg.NewCode()
		assert.Len(t, code, codeLength)
		_, err := reg.Create(code, "admin", 1, 1)
		require.NoError(t, err)
		assert.False(t, seen[code])
		seen[code] = true
	}
}

func TestRegistry_ConcurrentCreate(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := reg.Create("SAME", "admin", 1, 1); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
}
