package spv

import (
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var headersBucket = []byte("headers")

// BoltHeaderStore persists headers in a bbolt file keyed by big-endian
// height, so byte order matches numeric order and the bucket's last key
// is the chain tip.
type BoltHeaderStore struct {
	db *bolt.DB
}

// OpenBoltHeaderStore opens (creating if needed) a header database at
// the given path.
func OpenBoltHeaderStore(path string) (*BoltHeaderStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open header store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(headersBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init header store: %w", err)
	}
	return &BoltHeaderStore{db: db}, nil
}

func (s *BoltHeaderStore) Close() error {
	return s.db.Close()
}

func (s *BoltHeaderStore) PutHeader(h *Header) error {
	if h == nil {
		return fmt.Errorf("%w: header", ErrNilParam)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(headersBucket).Put(heightKey(h.Height), h.Serialize())
	})
}

func (s *BoltHeaderStore) HeaderAt(height uint32) (*Header, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(headersBucket).Get(heightKey(height))
		if v == nil {
			return fmt.Errorf("%w: height %d", ErrHeaderNotFound, height)
		}
		raw = make([]byte, len(v))
		copy(raw, v)
		return nil
	})
	if err != nil {
		return nil, err
	}

	h, err := ParseHeader(raw)
	if err != nil {
		return nil, err
	}
	h.Height = height
	return h, nil
}

func (s *BoltHeaderStore) TipHeight() (uint32, error) {
	var tip uint32
	err := s.db.View(func(tx *bolt.Tx) error {
		k, _ := tx.Bucket(headersBucket).Cursor().Last()
		if k == nil {
			return fmt.Errorf("%w: store is empty", ErrHeaderNotFound)
		}
		tip = binary.BigEndian.Uint32(k)
		return nil
	})
	return tip, err
}

func heightKey(height uint32) []byte {
	k := make([]byte, 4)
	binary.BigEndian.PutUint32(k, height)
	return k
}
