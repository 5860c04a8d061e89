package relay

import "errors"

// Validation and lookup failures surfaced by the relay. These mirror
// the on-chain program's error codes one to one so that feed operators
// can correlate local rejections with chain rejections.
var (
	ErrInvalidHeaderSize         = errors.New("invalid block header size")
	ErrInvalidGenesisHeight      = errors.New("invalid genesis height")
	ErrInvalidHeaderBatch        = errors.New("invalid block header batch")
	ErrDuplicateBlock            = errors.New("block already stored")
	ErrPreviousBlockNotFound     = errors.New("previous block hash not found")
	ErrLowDifficulty             = errors.New("insufficient difficulty")
	ErrIncorrectDifficultyTarget = errors.New("incorrect difficulty target")
	ErrInvalidDifficultyPeriod   = errors.New("invalid difficulty period")
	ErrNotChainExtension         = errors.New("not extension of chain")
	ErrBlockNotFound             = errors.New("block not found")
	ErrInsufficientConfirmations = errors.New("insufficient confirmations")
	ErrIncorrectMerkleProof      = errors.New("incorrect merkle proof")
	ErrInvalidTxID               = errors.New("invalid tx identifier")
	ErrInvalidBlockHash          = errors.New("invalid block hash")
	ErrInvalidChainID            = errors.New("invalid chain id")
	ErrForkNotFound              = errors.New("fork not found")
	ErrNotInitialized            = errors.New("relay not initialized")
	ErrAlreadyInitialized        = errors.New("relay already initialized")
)
