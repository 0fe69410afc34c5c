package repositories

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func Test_Claim_Once(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()

	repository := NewDedupeRepository(db, slog.Default(), "worker", time.Minute)
	id := uuid.NewString()

	// When the same id is claimed twice
	first, err := repository.Claim(context.Background(), id)
	req.NoError(err)
	second, err := repository.Claim(context.Background(), id)
	req.NoError(err)

	// Then only the first claim wins
	req.True(first)
	req.False(second)
}

func Test_Claim_Namespaces_Are_Independent(t *testing.T) {
	req := require.New(t)
	db, err := OpenBadger("")
	req.NoError(err)
	defer db.Close()

	worker := NewDedupeRepository(db, slog.Default(), "worker", time.Minute)
	gateway := NewDedupeRepository(db, slog.Default(), "gateway", time.Minute)
	id := uuid.NewString()

	first, err := worker.Claim(context.Background(), id)
	req.NoError(err)
	req.True(first)

	first, err = gateway.Claim(context.Background(), id)
	req.NoError(err)
	req.True(first)
}

func Test_Claim_Expires(t *testing.T) {
	req := require.New(t)
	db, err := OpenBadger("")
	req.NoError(err)
	defer db.Close()

	repository := NewDedupeRepository(db, slog.Default(), "worker", time.Second)
	id := uuid.NewString()

	first, err := repository.Claim(context.Background(), id)
	req.NoError(err)
	req.True(first)

	// Badger TTLs have a one second resolution
	time.Sleep(2100 * time.Millisecond)

	again, err := repository.Claim(context.Background(), id)
	req.NoError(err)
	req.True(again)
}

func Test_Claim_Concurrent(t *testing.T) {
	req := require.New(t)
	db, err := OpenBadger("")
	req.NoError(err)
	defer db.Close()

	repository := NewDedupeRepository(db, slog.Default(), "worker", time.Minute)
	id := uuid.NewString()

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			first, err := repository.Claim(context.Background(), id)
			if err == nil && first {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	req.Equal(int32(1), winners.Load())
}

func Test_Release_Allows_Reclaim(t *testing.T) {
	req := require.New(t)
	db, err := OpenBadger("")
	req.NoError(err)
	defer db.Close()

	repository := NewDedupeRepository(db, slog.Default(), "worker", time.Minute)
	id := uuid.NewString()

	// Given a claimed id
	first, err := repository.Claim(context.Background(), id)
	req.NoError(err)
	req.True(first)

	// When it is released
	req.NoError(repository.Release(context.Background(), id))

	// Then the next claim wins again
	again, err := repository.Claim(context.Background(), id)
	req.NoError(err)
	req.True(again)

	// And releasing an unknown id is harmless
	req.NoError(repository.Release(context.Background(), uuid.NewString()))
}
