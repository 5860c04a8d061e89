package btcheader

// VerifyMerkleProof recomputes a merkle root from a transaction hash,
// its position in the block, and the sibling hashes along the path,
// then compares it against the expected root. Hashes are in internal
// byte order throughout.
func VerifyMerkleProof(txid [32]byte, index uint64, siblings [][32]byte, root [32]byte) bool {
	current := txid
	for _, sibling := range siblings {
		var pair [64]byte
		if index&1 == 1 {
			copy(pair[:32], sibling[:])
			copy(pair[32:], current[:])
		} else {
			copy(pair[:32], current[:])
			copy(pair[32:], sibling[:])
		}
		current = Hash256(pair[:])
		index >>= 1
	}
	return current == root
}

// SplitProof slices a flat proof buffer into 32-byte sibling hashes.
// Returns false if the buffer is not a whole number of hashes.
func SplitProof(proof []byte) ([][32]byte, bool) {
	if len(proof)%32 != 0 {
		return nil, false
	}
	siblings := make([][32]byte, 0, len(proof)/32)
	for off := 0; off < len(proof); off += 32 {
		var h [32]byte
		copy(h[:], proof[off:off+32])
		siblings = append(siblings, h)
	}
	return siblings, true
}
