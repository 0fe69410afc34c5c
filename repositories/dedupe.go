package repositories

import (
	"chat-relay/contract"
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const maxClaimAttempts = 3

// DedupeRepository remembers handled message ids for a limited time so that
// at-least-once redeliveries are processed a single time.
type DedupeRepository struct {
	db        *badger.DB
	log       *slog.Logger
	namespace string
	ttl       time.Duration
}

var _ contract.DedupeStore = (*DedupeRepository)(nil)

func NewDedupeRepository(db *badger.DB, log *slog.Logger, namespace string, ttl time.Duration) *DedupeRepository {
	return &DedupeRepository{db: db, log: log, namespace: namespace, ttl: ttl}
}

// OpenBadger opens the database at path, or an in-memory one when path is empty.
func OpenBadger(path string) (*badger.DB, error) {
	options := badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING)
	if path == "" {
		options = badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.WARNING)
	}
	return badger.Open(options)
}

func (r *DedupeRepository) keyOf(key string) []byte {
	return []byte(fmt.Sprintf("dedupe:%s:%s", r.namespace, key))
}

// Claim stores the key as "dedupe:{namespace}:{key}" with a TTL and reports
// whether this call was the first one to do so.
func (r *DedupeRepository) Claim(ctx context.Context, key string) (bool, error) {
	k := r.keyOf(key)
	value := []byte(strconv.FormatInt(time.Now().UTC().UnixNano(), 10))

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		first := false
		err := r.db.Update(func(txn *badger.Txn) error {
			_, err := txn.Get(k)
			switch {
			case err == nil:
				return nil
			case !stdErrors.Is(err, badger.ErrKeyNotFound):
				return err
			}
			first = true
			entry := badger.NewEntry(k, value)
			if r.ttl > 0 {
				entry = entry.WithTTL(r.ttl)
			}
			return txn.SetEntry(entry)
		})
		if stdErrors.Is(err, badger.ErrConflict) && attempt < maxClaimAttempts {
			r.log.Debug("Dedupe claim conflict, retrying", "key", key, "attempt", attempt)
			continue
		}
		if err != nil {
			return false, err
		}
		return first, nil
	}
}

// Release forgets a claimed key. Unknown keys are ignored.
func (r *DedupeRepository) Release(_ context.Context, key string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(r.keyOf(key))
	})
}
