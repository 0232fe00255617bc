package spv

import (
	"fmt"
	"sync"
)

// HeaderStore caches verified block headers by height so repeated
// inclusion checks in the same block do not refetch from the network.
type HeaderStore interface {
	// PutHeader stores a header under its height.
	PutHeader(h *Header) error

	// HeaderAt returns the header for a height, or ErrHeaderNotFound.
	HeaderAt(height uint32) (*Header, error)

	// TipHeight returns the highest stored height, or ErrHeaderNotFound
	// when the store is empty.
	TipHeight() (uint32, error)
}

// MemHeaderStore is an in-memory HeaderStore safe for concurrent use.
type MemHeaderStore struct {
	mu      sync.RWMutex
	headers map[uint32]*Header
	tip     uint32
	hasTip  bool
}

func NewMemHeaderStore() *MemHeaderStore {
	return &MemHeaderStore{headers: make(map[uint32]*Header)}
}

func (s *MemHeaderStore) PutHeader(h *Header) error {
	if h == nil {
		return fmt.Errorf("%w: header", ErrNilParam)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headers[h.Height] = h
	if !s.hasTip || h.Height > s.tip {
		s.tip = h.Height
		s.hasTip = true
	}
	return nil
}

func (s *MemHeaderStore) HeaderAt(height uint32) (*Header, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.headers[height]
	if !ok {
		return nil, fmt.Errorf("%w: height %d", ErrHeaderNotFound, height)
	}
	return h, nil
}

func (s *MemHeaderStore) TipHeight() (uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasTip {
		return 0, fmt.Errorf("%w: store is empty", ErrHeaderNotFound)
	}
	return s.tip, nil
}
