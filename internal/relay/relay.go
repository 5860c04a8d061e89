package relay

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/dbirdge/btcrelay/internal/btcheader"
)

// Config tunes the relay engine. Zero values fall back to the
// program's constants.
type Config struct {
	// Confirmations is the fork depth at which a reorg is triggered
	// and the default depth VerifyTx requires.
	Confirmations uint32

	// MaxHeaders bounds retained main-chain history; older entries
	// are pruned.
	MaxHeaders uint32

	Logger *slog.Logger
}

// Relay applies Bitcoin block headers to a stored chain view, tracking
// forks and reorganizing when a fork outgrows the main chain. It is
// the off-chain counterpart of the btc_relay program and enforces the
// same rules, so any header accepted here is expected to be accepted
// on chain.
type Relay struct {
	mu    sync.Mutex
	store Store
	state *State // nil until Initialize

	confirmations uint32
	maxHeaders    uint32
	logger        *slog.Logger
}

// SubmitResult describes how an accepted header changed the chain view.
type SubmitResult struct {
	Hash    [32]byte
	Height  uint32
	ChainID uint64
	NewFork bool
	Reorged bool
}

// Open loads existing relay state from the store, if any.
func Open(store Store, cfg Config) (*Relay, error) {
	if cfg.Confirmations == 0 {
		cfg.Confirmations = DefaultConfirmations
	}
	if cfg.MaxHeaders == 0 {
		cfg.MaxHeaders = MaxHeaders
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	state, err := store.State()
	if err != nil {
		return nil, fmt.Errorf("load relay state: %w", err)
	}
	return &Relay{
		store:         store,
		state:         state,
		confirmations: cfg.Confirmations,
		maxHeaders:    cfg.MaxHeaders,
		logger:        cfg.Logger,
	}, nil
}

// Initialized reports whether the relay has a genesis anchor.
func (r *Relay) Initialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state != nil
}

// BestBlock returns the main-chain tip hash and height.
func (r *Relay) BestBlock() ([32]byte, uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		return [32]byte{}, 0, ErrNotInitialized
	}
	return r.state.BestBlock, r.state.BestHeight, nil
}

// Difficulty returns the current epoch difficulty.
func (r *Relay) Difficulty() (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		return decimal.Zero, ErrNotInitialized
	}
	if r.state.EpochStartTarget == nil || r.state.EpochStartTarget.Sign() <= 0 {
		return decimal.Zero, nil
	}
	limit := decimal.NewFromBigInt(btcheader.PowLimit, 0)
	return limit.DivRound(decimal.NewFromBigInt(r.state.EpochStartTarget, 0), 8), nil
}

// ChainHash returns the main-chain block hash at the given height.
func (r *Relay) ChainHash(height uint32) ([32]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		return [32]byte{}, ErrNotInitialized
	}
	hash, ok, err := r.store.ChainHash(height)
	if err != nil {
		return [32]byte{}, err
	}
	if !ok {
		return [32]byte{}, ErrBlockNotFound
	}
	return hash, nil
}

// Initialize anchors the relay at a trusted genesis header. The
// header seeds the difficulty epoch; everything submitted afterwards
// must build on it.
func (r *Relay) Initialize(rawHeader []byte, genesisHeight uint32, genesisHash [32]byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != nil {
		return ErrAlreadyInitialized
	}
	header, err := btcheader.Parse(rawHeader)
	if err != nil {
		return ErrInvalidHeaderSize
	}
	if genesisHeight == 0 {
		return ErrInvalidGenesisHeight
	}
	digest := header.Hash()
	if digest != genesisHash {
		return ErrInvalidBlockHash
	}

	target := header.Target()
	timestamp := header.Timestamp()

	state := &State{
		BestBlock:        digest,
		BestHeight:       genesisHeight,
		PruneHeight:      genesisHeight,
		EpochStartTarget: target,
		EpochEndTarget:   target,
		EpochStartTime:   timestamp,
		EpochEndTime:     timestamp,
		ChainCounter:     MainChainID,
	}

	if err := r.store.PutHeader(&HeaderRecord{
		Hash:    digest,
		Raw:     header,
		Height:  genesisHeight,
		ChainID: MainChainID,
	}); err != nil {
		return fmt.Errorf("store genesis header: %w", err)
	}
	if err := r.store.PutChainHash(genesisHeight, digest); err != nil {
		return fmt.Errorf("store genesis chain index: %w", err)
	}
	if err := r.store.PutFork(&Fork{
		ChainID:  MainChainID,
		Height:   genesisHeight,
		Ancestor: digest,
	}); err != nil {
		return fmt.Errorf("store main fork: %w", err)
	}
	if err := r.store.PutState(state); err != nil {
		return fmt.Errorf("store relay state: %w", err)
	}

	r.state = state
	r.logger.Info("relay initialized",
		"height", genesisHeight,
		"block", fmt.Sprintf("%x", digest))
	return nil
}

// SubmitBlockHeader validates a header against the stored chain and
// appends it: extending the main chain, opening or extending a fork,
// or triggering a reorganization once a fork is deep enough.
func (r *Relay) SubmitBlockHeader(rawHeader []byte, blockHash [32]byte) (*SubmitResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.submitLocked(rawHeader, blockHash)
}

// SubmitBlockHeaderBatch applies headers in order, stopping at the
// first invalid one. The returned results cover the accepted prefix.
func (r *Relay) SubmitBlockHeaderBatch(rawHeaders [][]byte) ([]*SubmitResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(rawHeaders) == 0 {
		return nil, ErrInvalidHeaderBatch
	}
	results := make([]*SubmitResult, 0, len(rawHeaders))
	for i, raw := range rawHeaders {
		header, err := btcheader.Parse(raw)
		if err != nil {
			return results, fmt.Errorf("header %d: %w", i, ErrInvalidHeaderBatch)
		}
		res, err := r.submitLocked(raw, header.Hash())
		if err != nil {
			return results, fmt.Errorf("header %d: %w", i, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Relay) submitLocked(rawHeader []byte, blockHash [32]byte) (*SubmitResult, error) {
	if r.state == nil {
		return nil, ErrNotInitialized
	}
	header, err := btcheader.Parse(rawHeader)
	if err != nil {
		return nil, ErrInvalidHeaderSize
	}
	digest := header.Hash()
	if digest != blockHash {
		return nil, ErrInvalidBlockHash
	}

	if existing, err := r.store.Header(digest); err != nil {
		return nil, err
	} else if existing != nil && existing.ChainID != 0 {
		return nil, ErrDuplicateBlock
	}

	prev, err := r.store.Header(header.PrevBlock())
	if err != nil {
		return nil, err
	}
	if prev == nil {
		return nil, ErrPreviousBlockNotFound
	}

	target := header.Target()
	if btcheader.HashValue(digest).Cmp(target) > 0 {
		return nil, ErrLowDifficulty
	}

	height := prev.Height + 1

	// State is only persisted after the whole submission succeeds, so
	// epoch bookkeeping mutates a copy.
	state := r.state.Clone()
	if err := applyEpoch(state, header, height, target); err != nil {
		return nil, err
	}

	fork, err := r.store.Fork(prev.ChainID)
	if err != nil {
		return nil, err
	}
	if fork == nil {
		return nil, ErrForkNotFound
	}

	result := &SubmitResult{Hash: digest, Height: height}

	switch {
	case fork.Height != prev.Height:
		// The previous block is not its chain's tip: a new branch.
		state.ChainCounter++
		newID := state.ChainCounter
		result.ChainID = newID
		result.NewFork = true

		if err := r.store.PutFork(&Fork{
			ChainID:     newID,
			Height:      height,
			Ancestor:    prev.Hash,
			Descendants: [][32]byte{digest},
		}); err != nil {
			return nil, err
		}
		if err := r.putHeader(header, digest, height, newID); err != nil {
			return nil, err
		}

	case prev.ChainID == MainChainID:
		result.ChainID = MainChainID
		state.BestBlock = digest
		state.BestHeight = height
		fork.Height = height
		if err := r.store.PutFork(fork); err != nil {
			return nil, err
		}
		if err := r.putHeader(header, digest, height, MainChainID); err != nil {
			return nil, err
		}
		if err := r.store.PutChainHash(height, digest); err != nil {
			return nil, err
		}
		if err := r.prune(state); err != nil {
			return nil, err
		}

	case height >= r.state.BestHeight+r.confirmations:
		result.ChainID = MainChainID
		result.Reorged = true
		if err := r.reorg(state, fork, header, digest, height); err != nil {
			return nil, err
		}

	default:
		result.ChainID = fork.ChainID
		fork.Height = height
		fork.Descendants = append(fork.Descendants, digest)
		if err := r.store.PutFork(fork); err != nil {
			return nil, err
		}
		if err := r.putHeader(header, digest, height, fork.ChainID); err != nil {
			return nil, err
		}
	}

	if err := r.store.PutState(state); err != nil {
		return nil, err
	}
	r.state = state

	r.logger.Debug("header accepted",
		"height", height,
		"chain_id", result.ChainID,
		"new_fork", result.NewFork,
		"reorged", result.Reorged,
		"block", fmt.Sprintf("%x", digest))
	return result, nil
}

func (r *Relay) putHeader(header btcheader.Header, digest [32]byte, height uint32, chainID uint64) error {
	return r.store.PutHeader(&HeaderRecord{
		Hash:    digest,
		Raw:     header,
		Height:  height,
		ChainID: chainID,
	})
}

// applyEpoch validates the header's difficulty target for its height
// and updates the epoch bookkeeping on period boundaries.
func applyEpoch(state *State, header btcheader.Header, height uint32, target *big.Int) error {
	switch {
	case btcheader.IsPeriodStart(height):
		// A full epoch observed locally pins the expected retarget.
		// Without the closing timestamp (relay anchored mid-epoch)
		// the new target is accepted as-is.
		if state.EpochEndTime != 0 && state.EpochStartTarget != nil {
			expected := btcheader.NextTarget(state.EpochStartTarget, state.EpochStartTime, state.EpochEndTime)
			if expected.Cmp(target) != 0 {
				return ErrIncorrectDifficultyTarget
			}
		}
		state.EpochStartTarget = target
		state.EpochStartTime = header.Timestamp()
		state.EpochEndTarget = nil
		state.EpochEndTime = 0

	case btcheader.IsPeriodEnd(height):
		if state.EpochStartTarget != nil && state.EpochStartTarget.Cmp(target) != 0 {
			return ErrIncorrectDifficultyTarget
		}
		state.EpochEndTarget = target
		state.EpochEndTime = header.Timestamp()

	default:
		if state.EpochStartTarget != nil && state.EpochStartTarget.Cmp(target) != 0 {
			return ErrIncorrectDifficultyTarget
		}
	}
	return nil
}

// reorg promotes the branch ending in the given fork to the main
// chain. The branch may cross several fork records when forks stack on
// forks, so the ancestry is walked back to the last block shared with
// the main-chain index. Displaced main chain blocks become a new fork
// branching from that block, so a later recovery of the old chain is
// still tracked.
func (r *Relay) reorg(state *State, fork *Fork, header btcheader.Header, digest [32]byte, height uint32) error {
	fork.Height = height
	fork.Descendants = append(fork.Descendants, digest)
	if err := r.putHeader(header, digest, height, fork.ChainID); err != nil {
		return err
	}

	// Walk from the new tip down to the branch point: the first
	// ancestor already on the main-chain index.
	var branch []*HeaderRecord // tip first
	curHash, curHeight := digest, height
	for {
		onMain, ok, err := r.store.ChainHash(curHeight)
		if err != nil {
			return err
		}
		if ok && onMain == curHash {
			break
		}
		rec, err := r.store.Header(curHash)
		if err != nil {
			return err
		}
		if rec == nil {
			return ErrBlockNotFound
		}
		branch = append(branch, rec)
		curHash = rec.Raw.PrevBlock()
		curHeight = rec.Height - 1
	}
	branchPoint := curHash
	startHeight := curHeight + 1

	// Demote the displaced main-chain suffix.
	var displaced [][32]byte
	for h := startHeight; h <= state.BestHeight; h++ {
		hash, ok, err := r.store.ChainHash(h)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		displaced = append(displaced, hash)
	}
	if len(displaced) > 0 {
		state.ChainCounter++
		demotedID := state.ChainCounter
		for _, hash := range displaced {
			rec, err := r.store.Header(hash)
			if err != nil {
				return err
			}
			if rec == nil {
				return ErrBlockNotFound
			}
			rec.ChainID = demotedID
			if err := r.store.PutHeader(rec); err != nil {
				return err
			}
		}
		if err := r.store.PutFork(&Fork{
			ChainID:     demotedID,
			Height:      state.BestHeight,
			Ancestor:    branchPoint,
			Descendants: displaced,
		}); err != nil {
			return err
		}
	}

	// Promote the branch onto the main-chain index, bottom up,
	// remembering the highest block taken from each intermediate fork.
	promotedFrom := make(map[uint64][32]byte)
	for i := len(branch) - 1; i >= 0; i-- {
		rec := branch[i]
		if rec.ChainID != MainChainID && rec.ChainID != fork.ChainID {
			promotedFrom[rec.ChainID] = rec.Hash
		}
		rec.ChainID = MainChainID
		if err := r.store.PutHeader(rec); err != nil {
			return err
		}
		if err := r.store.PutChainHash(rec.Height, rec.Hash); err != nil {
			return err
		}
	}

	// Intermediate forks keep only the suffix that was not promoted,
	// re-anchored on their last promoted block.
	for id, last := range promotedFrom {
		other, err := r.store.Fork(id)
		if err != nil {
			return err
		}
		if other == nil {
			continue
		}
		idx := -1
		for i, hash := range other.Descendants {
			if hash == last {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}
		remaining := other.Descendants[idx+1:]
		if len(remaining) == 0 {
			if err := r.store.DeleteFork(id); err != nil {
				return err
			}
			continue
		}
		other.Ancestor = last
		other.Descendants = append([][32]byte(nil), remaining...)
		if err := r.store.PutFork(other); err != nil {
			return err
		}
	}

	state.BestBlock = digest
	state.BestHeight = fork.Height

	main, err := r.store.Fork(MainChainID)
	if err != nil {
		return err
	}
	if main == nil {
		return ErrForkNotFound
	}
	main.Height = fork.Height
	if err := r.store.PutFork(main); err != nil {
		return err
	}
	if err := r.store.DeleteFork(fork.ChainID); err != nil {
		return err
	}

	r.logger.Info("chain reorganized",
		"fork_id", fork.ChainID,
		"from_height", startHeight,
		"new_best_height", state.BestHeight,
		"displaced", len(displaced))
	return r.prune(state)
}

// prune drops main-chain history beyond the retention window.
func (r *Relay) prune(state *State) error {
	if state.BestHeight < state.PruneHeight {
		return nil
	}
	span := state.BestHeight - state.PruneHeight + 1
	if span <= r.maxHeaders {
		return nil
	}
	floor := state.BestHeight - r.maxHeaders + 1
	for h := state.PruneHeight; h < floor; h++ {
		hash, ok, err := r.store.ChainHash(h)
		if err != nil {
			return err
		}
		if ok {
			if err := r.store.DeleteHeader(hash); err != nil {
				return err
			}
		}
		if err := r.store.DeleteChainHash(h); err != nil {
			return err
		}
	}
	state.PruneHeight = floor
	return nil
}
