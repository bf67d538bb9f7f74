package audit

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/hostbeacon/dnssync/pkg/types"
)

var (
	// Bucket names
	bucketOperations = []byte("operations")
	bucketDecisions  = []byte("decisions")
)

// Store retains sync operations and backend decisions for audit.
// Committed operations are kept briefly (the retention window) so
// operators can trace recent syncs; failed operations are kept until
// pruned so they stay visible.
type Store struct {
	db        *bolt.DB
	retention time.Duration
}

// NewStore opens (or creates) the audit database in dataDir
func NewStore(dataDir string, retention time.Duration) (*Store, error) {
	dbPath := filepath.Join(dataDir, "dnssync.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketOperations,
			bucketDecisions,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, retention: retention}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveOperation persists an operation at its current lifecycle state
func (s *Store) SaveOperation(op *types.SyncOperation) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOperations)
		data, err := json.Marshal(op)
		if err != nil {
			return err
		}
		return b.Put([]byte(op.ID), data)
	})
}

// GetOperation retrieves an operation by ID
func (s *Store) GetOperation(id string) (*types.SyncOperation, error) {
	var op types.SyncOperation
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOperations)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("operation not found: %s", id)
		}
		return json.Unmarshal(data, &op)
	})
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// ListOperations returns all retained operations, newest first
func (s *Store) ListOperations() ([]*types.SyncOperation, error) {
	var ops []*types.SyncOperation
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOperations)
		return b.ForEach(func(k, v []byte) error {
			var op types.SyncOperation
			if err := json.Unmarshal(v, &op); err != nil {
				return err
			}
			ops = append(ops, &op)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(ops, func(i, j int) bool {
		return ops[i].CreatedAt.After(ops[j].CreatedAt)
	})
	return ops, nil
}

// FailedOperations returns operations that exhausted their retries,
// newest first. These are the ones surfaced to the operator.
func (s *Store) FailedOperations() ([]*types.SyncOperation, error) {
	ops, err := s.ListOperations()
	if err != nil {
		return nil, err
	}

	var failed []*types.SyncOperation
	for _, op := range ops {
		if op.State == types.OpStateFailed {
			failed = append(failed, op)
		}
	}
	return failed, nil
}

// SaveDecision persists a backend routing decision
func (s *Store) SaveDecision(d *types.Decision) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDecisions)
		data, err := json.Marshal(d)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%020d:%s", d.DecidedAt.UnixNano(), d.OperationID)
		return b.Put([]byte(key), data)
	})
}

// DecisionsFor returns the recorded decisions for a hostname, oldest
// first. This answers "was this host synced via PowerDNS or mock, and
// why" across its event history.
func (s *Store) DecisionsFor(hostname string) ([]*types.Decision, error) {
	var decisions []*types.Decision
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDecisions)
		return b.ForEach(func(k, v []byte) error {
			var d types.Decision
			if err := json.Unmarshal(v, &d); err != nil {
				return err
			}
			if d.Hostname == hostname {
				decisions = append(decisions, &d)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return decisions, nil
}

// Prune removes committed and superseded operations older than the
// retention window, along with decisions of the same age. Failed
// operations are kept regardless of age until explicitly pruned.
func (s *Store) Prune() error {
	cutoff := time.Now().Add(-s.retention)

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOperations)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var op types.SyncOperation
			if err := json.Unmarshal(v, &op); err != nil {
				return err
			}
			if op.State == types.OpStateFailed || !op.Terminal() {
				return nil
			}
			if op.UpdatedAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}

		d := tx.Bucket(bucketDecisions)
		stale = stale[:0]
		err = d.ForEach(func(k, v []byte) error {
			var dec types.Decision
			if err := json.Unmarshal(v, &dec); err != nil {
				return err
			}
			if dec.DecidedAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := d.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
