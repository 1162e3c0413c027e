package evalcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/park285/Cheese-Analysis-Board/internal/evaluation"
)

// BadgerStore keeps evaluations in a local Badger database.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens the database in dir. An empty dir keeps data in memory.
func OpenBadger(dir string) (*BadgerStore, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func badgerKey(fen string) []byte { return []byte("eval:" + fen) }

func (s *BadgerStore) Load(_ context.Context, fen string) (evaluation.Result, bool, error) {
	var (
		res   evaluation.Result
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(fen))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &res)
		})
	})
	if err != nil {
		return evaluation.Result{}, false, err
	}
	return res, found, nil
}

func (s *BadgerStore) Save(_ context.Context, res evaluation.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(badgerKey(res.FEN))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(badgerKey(res.FEN), data)
	})
}

func (s *BadgerStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
