//go:build integration

package session_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eligicert/internal/db"
	"eligicert/internal/form"
	"eligicert/internal/page"
	"eligicert/internal/session"
)

func TestRedisStore_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	ctx := context.Background()
	client, err := db.ConnectRedis(ctx, db.RedisOptions{Addr: addr, Password: os.Getenv("REDIS_PASSWORD")}, nil)
	require.NoError(t, err)
	store := session.NewRedisStore(client, time.Minute)
	defer store.Close()

	id := session.NewID()
	st := session.State{Page: page.Snapshot{Form: form.Snapshot{Name: "Asha", TenthMarks: "70"}}}
	require.NoError(t, store.Save(ctx, id, st))

	got, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.Page.Form.Name)

	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Load(ctx, id)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestRedisStore_UpdateIsAtomic(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	ctx := context.Background()
	client, err := db.ConnectRedis(ctx, db.RedisOptions{Addr: addr, Password: os.Getenv("REDIS_PASSWORD")}, nil)
	require.NoError(t, err)
	store := session.NewRedisStore(client, time.Minute)
	defer store.Close()

	id := session.NewID()
	defer store.Delete(ctx, id)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, id, func(st *session.State) error {
				st.Page.Form.PhotoGen++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), got.Page.Form.PhotoGen)
}
