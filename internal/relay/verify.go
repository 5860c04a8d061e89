package relay

import (
	"github.com/dbirdge/btcrelay/internal/btcheader"
)

// VerifyTx checks that a transaction is included in the main-chain
// block at the given height with sufficient confirmation depth. The
// proof is the flat concatenation of 32-byte sibling hashes from the
// transaction up to the merkle root. With insecure set the depth
// check is skipped, matching the program's test hook.
func (r *Relay) VerifyTx(height uint32, index uint64, txid [32]byte, rawHeader []byte, proof []byte, confirmations uint64, insecure bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == nil {
		return ErrNotInitialized
	}
	if txid == ([32]byte{}) {
		return ErrInvalidTxID
	}
	header, err := btcheader.Parse(rawHeader)
	if err != nil {
		return ErrInvalidHeaderSize
	}

	chainHash, ok, err := r.store.ChainHash(height)
	if err != nil {
		return err
	}
	if !ok || header.Hash() != chainHash {
		return ErrBlockNotFound
	}

	if !insecure {
		if confirmations == 0 {
			confirmations = uint64(r.confirmations)
		}
		if r.state.BestHeight < height {
			return ErrInsufficientConfirmations
		}
		depth := uint64(r.state.BestHeight-height) + 1
		if depth < confirmations {
			return ErrInsufficientConfirmations
		}
	}

	siblings, ok := btcheader.SplitProof(proof)
	if !ok {
		return ErrIncorrectMerkleProof
	}
	if !btcheader.VerifyMerkleProof(txid, index, siblings, header.MerkleRoot()) {
		return ErrIncorrectMerkleProof
	}
	return nil
}
