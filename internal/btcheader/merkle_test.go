package btcheader

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func hashPair(left, right [32]byte) [32]byte {
	var pair [64]byte
	copy(pair[:32], left[:])
	copy(pair[32:], right[:])
	return Hash256(pair[:])
}

// buildTree computes the merkle root of four leaves and the proof for
// each leaf position.
func buildTree(leaves [4][32]byte) (root [32]byte, proofs [4][][32]byte) {
	l := hashPair(leaves[0], leaves[1])
	r := hashPair(leaves[2], leaves[3])
	root = hashPair(l, r)

	proofs[0] = [][32]byte{leaves[1], r}
	proofs[1] = [][32]byte{leaves[0], r}
	proofs[2] = [][32]byte{leaves[3], l}
	proofs[3] = [][32]byte{leaves[2], l}
	return root, proofs
}

func testLeaves() [4][32]byte {
	var leaves [4][32]byte
	for i := range leaves {
		leaves[i] = Hash256([]byte{byte(i)})
	}
	return leaves
}

func TestVerifyMerkleProof_AllPositions(t *testing.T) {
	leaves := testLeaves()
	root, proofs := buildTree(leaves)

	for i := range leaves {
		require.True(t, VerifyMerkleProof(leaves[i], uint64(i), proofs[i], root), "leaf %d", i)
	}
}

func TestVerifyMerkleProof_WrongIndex(t *testing.T) {
	leaves := testLeaves()
	root, proofs := buildTree(leaves)

	// Proof for position 0 presented at position 1 hashes in the
	// wrong order.
	require.False(t, VerifyMerkleProof(leaves[0], 1, proofs[0], root))
}

func TestVerifyMerkleProof_TamperedSibling(t *testing.T) {
	leaves := testLeaves()
	root, proofs := buildTree(leaves)

	proofs[0][0][5] ^= 0xff
	require.False(t, VerifyMerkleProof(leaves[0], 0, proofs[0], root))
}

func TestVerifyMerkleProof_SingleTxBlock(t *testing.T) {
	// A one-transaction block: txid is the root, proof is empty.
	txid := Hash256([]byte("coinbase"))
	require.True(t, VerifyMerkleProof(txid, 0, nil, txid))
}

func TestSplitProof(t *testing.T) {
	siblings, ok := SplitProof(make([]byte, 96))
	require.True(t, ok)
	require.Len(t, siblings, 3)

	_, ok = SplitProof(make([]byte, 95))
	require.False(t, ok)

	siblings, ok = SplitProof(nil)
	require.True(t, ok)
	require.Empty(t, siblings)
}
