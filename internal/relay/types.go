package relay

import (
	"math/big"

	"github.com/dbirdge/btcrelay/internal/btcheader"
)

// MainChainID identifies the canonical chain. A header record with
// chain id zero has never been stored; the duplicate check depends on
// this distinction.
const MainChainID uint64 = 1

// Retention and fork-tracking bounds.
const (
	MaxHeaders = 1000
	MaxForks   = 100
)

// DefaultConfirmations is the reorg threshold: a fork overtakes the
// main chain once its tip is this many blocks past the current best.
const DefaultConfirmations = 6

// State is the relay's chain-wide bookkeeping, the counterpart of the
// on-chain relay-state account.
type State struct {
	BestBlock   [32]byte
	BestHeight  uint32
	PruneHeight uint32 // lowest retained main-chain height

	EpochStartTarget *big.Int
	EpochEndTarget   *big.Int
	EpochStartTime   uint32
	EpochEndTime     uint32

	ChainCounter uint64
}

// Clone returns a deep copy, needed because big.Int fields are mutable.
func (s *State) Clone() *State {
	out := *s
	if s.EpochStartTarget != nil {
		out.EpochStartTarget = new(big.Int).Set(s.EpochStartTarget)
	}
	if s.EpochEndTarget != nil {
		out.EpochEndTarget = new(big.Int).Set(s.EpochEndTarget)
	}
	return &out
}

// HeaderRecord is a stored block header with its position in the
// relay's chain/fork structure.
type HeaderRecord struct {
	Hash    [32]byte
	Raw     btcheader.Header
	Height  uint32
	ChainID uint64
}

// Fork tracks one chain branch. The main chain is fork MainChainID;
// for it only Height is meaningful.
type Fork struct {
	ChainID     uint64
	Height      uint32   // tip height
	Ancestor    [32]byte // main-chain block the branch forked from
	Descendants [][32]byte
}

// Store is the persistence boundary of the relay engine. A nil record
// with a nil error means "not found".
type Store interface {
	State() (*State, error)
	PutState(state *State) error

	Header(hash [32]byte) (*HeaderRecord, error)
	PutHeader(rec *HeaderRecord) error
	DeleteHeader(hash [32]byte) error

	ChainHash(height uint32) ([32]byte, bool, error)
	PutChainHash(height uint32, hash [32]byte) error
	DeleteChainHash(height uint32) error

	Fork(chainID uint64) (*Fork, error)
	PutFork(fork *Fork) error
	DeleteFork(chainID uint64) error

	Close() error
}
