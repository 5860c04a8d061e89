package store

import (
	"sync"

	"github.com/dbirdge/btcrelay/internal/relay"
)

// Memory is an in-process relay store. It is the default backing for
// short-lived runs and for tests; a restart loses the chain view.
type Memory struct {
	mu      sync.RWMutex
	state   *relay.State
	headers map[[32]byte]relay.HeaderRecord
	chain   map[uint32][32]byte
	forks   map[uint64]relay.Fork
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		headers: make(map[[32]byte]relay.HeaderRecord),
		chain:   make(map[uint32][32]byte),
		forks:   make(map[uint64]relay.Fork),
	}
}

func (m *Memory) State() (*relay.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		return nil, nil
	}
	return m.state.Clone(), nil
}

func (m *Memory) PutState(state *relay.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state.Clone()
	return nil
}

func (m *Memory) Header(hash [32]byte) (*relay.HeaderRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.headers[hash]
	if !ok {
		return nil, nil
	}
	out := rec
	return &out, nil
}

func (m *Memory) PutHeader(rec *relay.HeaderRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headers[rec.Hash] = *rec
	return nil
}

func (m *Memory) DeleteHeader(hash [32]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.headers, hash)
	return nil
}

func (m *Memory) ChainHash(height uint32) ([32]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hash, ok := m.chain[height]
	return hash, ok, nil
}

func (m *Memory) PutChainHash(height uint32, hash [32]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chain[height] = hash
	return nil
}

func (m *Memory) DeleteChainHash(height uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chain, height)
	return nil
}

func (m *Memory) Fork(chainID uint64) (*relay.Fork, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fork, ok := m.forks[chainID]
	if !ok {
		return nil, nil
	}
	out := fork
	out.Descendants = append([][32]byte(nil), fork.Descendants...)
	return &out, nil
}

func (m *Memory) PutFork(fork *relay.Fork) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *fork
	stored.Descendants = append([][32]byte(nil), fork.Descendants...)
	m.forks[fork.ChainID] = stored
	return nil
}

func (m *Memory) DeleteFork(chainID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.forks, chainID)
	return nil
}

func (m *Memory) Close() error { return nil }

var _ relay.Store = (*Memory)(nil)
