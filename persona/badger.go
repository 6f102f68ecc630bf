package persona

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "persona:"

// BadgerStore keeps one JSON-encoded profile per key.
type BadgerStore struct {
	db *badger.DB
}

type BadgerOptions struct {
	// Dir holds the database files. Required unless InMemory.
	Dir string

	// InMemory runs without disk persistence.
	InMemory bool

	// Log receives badger's warnings and errors. Nil silences them.
	Log logrus.FieldLogger
}

func OpenBadger(o BadgerOptions) (*BadgerStore, error) {
	if !o.InMemory && o.Dir == "" {
		return nil, errors.New("persona: badger dir is required for on-disk mode")
	}
	opts := badger.DefaultOptions(o.Dir)
	if o.InMemory {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(badgerLogger{log: o.Log})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Load(_ context.Context, id string) (*Profile, error) {
	var p Profile
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + NormalizeID(id)))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *BadgerStore) Put(_ context.Context, p *Profile) error {
	cp := *p
	cp.ID = NormalizeID(p.ID)
	if cp.ID == "" {
		return errors.New("persona: empty id")
	}
	b, err := json.Marshal(&cp)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+cp.ID), b)
	})
}

func (s *BadgerStore) List(_ context.Context) ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(keyPrefix)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, strings.TrimPrefix(string(it.Item().Key()), keyPrefix))
		}
		return nil
	})
	return ids, err
}

func (s *BadgerStore) Close() error { return s.db.Close() }

// badgerLogger forwards badger's output to logrus, dropping info and debug.
type badgerLogger struct{ log logrus.FieldLogger }

func (l badgerLogger) Errorf(f string, v ...interface{}) {
	if l.log != nil {
		l.log.Errorf("[badger] "+f, v...)
	}
}

func (l badgerLogger) Warningf(f string, v ...interface{}) {
	if l.log != nil {
		l.log.Warnf("[badger] "+f, v...)
	}
}

func (badgerLogger) Infof(string, ...interface{})  {}
func (badgerLogger) Debugf(string, ...interface{}) {}
