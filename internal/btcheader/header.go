package btcheader

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Size is the serialized length of a Bitcoin block header.
const Size = 80

// RetargetPeriod is the number of blocks between difficulty adjustments.
const RetargetPeriod = 2016

// TargetTimespan is the expected duration of one retarget period.
const TargetTimespan = RetargetPeriod * 600 // seconds

// PowLimit is the highest (easiest) allowed target on mainnet,
// i.e. compact bits 0x1d00ffff fully expanded.
var PowLimit = new(big.Int).Lsh(big.NewInt(0xffff), 208)

// Header is an 80-byte Bitcoin block header in wire encoding.
type Header [Size]byte

// Parse copies raw bytes into a Header, rejecting anything that is not
// exactly 80 bytes.
func Parse(raw []byte) (Header, error) {
	var h Header
	if len(raw) != Size {
		return h, fmt.Errorf("header is %d bytes, want %d", len(raw), Size)
	}
	copy(h[:], raw)
	return h, nil
}

// Hash returns the double SHA-256 of the header in internal byte order.
func (h Header) Hash() [32]byte {
	return Hash256(h[:])
}

func (h Header) Version() int32 {
	return int32(binary.LittleEndian.Uint32(h[0:4]))
}

// PrevBlock returns the previous block hash in internal byte order.
func (h Header) PrevBlock() [32]byte {
	var out [32]byte
	copy(out[:], h[4:36])
	return out
}

// MerkleRoot returns the transaction merkle root in internal byte order.
func (h Header) MerkleRoot() [32]byte {
	var out [32]byte
	copy(out[:], h[36:68])
	return out
}

func (h Header) Timestamp() uint32 {
	return binary.LittleEndian.Uint32(h[68:72])
}

// Bits returns the compact difficulty target encoding.
func (h Header) Bits() uint32 {
	return binary.LittleEndian.Uint32(h[72:76])
}

func (h Header) Nonce() uint32 {
	return binary.LittleEndian.Uint32(h[76:80])
}

// Target expands the header's compact bits to the full 256-bit target.
func (h Header) Target() *big.Int {
	return BitsToTarget(h.Bits())
}

// Difficulty reports how many times harder the header's target is than
// the proof-of-work limit.
func (h Header) Difficulty() decimal.Decimal {
	target := h.Target()
	if target.Sign() <= 0 {
		return decimal.Zero
	}
	limit := decimal.NewFromBigInt(PowLimit, 0)
	return limit.DivRound(decimal.NewFromBigInt(target, 0), 8)
}

// HashValue interprets a block hash as the 256-bit number compared
// against the target during proof-of-work validation. Bitcoin hashes
// are little-endian on the wire, so the bytes are reversed before the
// big.Int conversion.
func HashValue(hash [32]byte) *big.Int {
	var be [32]byte
	for i := range hash {
		be[31-i] = hash[i]
	}
	return new(big.Int).SetBytes(be[:])
}

// Hash256 is Bitcoin's double SHA-256.
func Hash256(b []byte) [32]byte {
	first := sha256.Sum256(b)
	return sha256.Sum256(first[:])
}

// BitsToTarget expands a compact nBits encoding: the low three bytes
// are the mantissa, the high byte the base-256 exponent.
func BitsToTarget(bits uint32) *big.Int {
	mantissa := int64(bits & 0x00ffffff)
	exponent := uint(bits >> 24)
	if exponent <= 3 {
		return big.NewInt(mantissa >> (8 * (3 - exponent)))
	}
	target := big.NewInt(mantissa)
	return target.Lsh(target, 8*(exponent-3))
}

// TargetToBits compresses a target back to compact form, truncating
// precision the same way Bitcoin Core does.
func TargetToBits(target *big.Int) uint32 {
	if target.Sign() <= 0 {
		return 0
	}
	exponent := uint32((target.BitLen() + 7) / 8)
	var mantissa uint32
	if exponent <= 3 {
		mantissa = uint32(target.Int64()) << (8 * (3 - exponent))
	} else {
		m := new(big.Int).Rsh(target, 8*uint(exponent-3))
		mantissa = uint32(m.Int64())
	}
	// A mantissa with the sign bit set is shifted down one byte.
	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}
	return exponent<<24 | mantissa
}

// NextTarget computes the retargeted difficulty for a new period from
// the previous period's target and its first/last block timestamps.
// The actual timespan is clamped to a factor of four in either
// direction and the result never exceeds PowLimit.
func NextTarget(prevTarget *big.Int, startTime, endTime uint32) *big.Int {
	actual := int64(endTime) - int64(startTime)
	if actual < TargetTimespan/4 {
		actual = TargetTimespan / 4
	}
	if actual > TargetTimespan*4 {
		actual = TargetTimespan * 4
	}

	next := new(big.Int).Mul(prevTarget, big.NewInt(actual))
	next.Div(next, big.NewInt(TargetTimespan))
	if next.Cmp(PowLimit) > 0 {
		next.Set(PowLimit)
	}
	// Round through the compact encoding: stored targets only carry
	// mantissa precision.
	return BitsToTarget(TargetToBits(next))
}

// IsPeriodStart reports whether a block at the given height begins a
// retarget period.
func IsPeriodStart(height uint32) bool {
	return height%RetargetPeriod == 0
}

// IsPeriodEnd reports whether a block at the given height closes a
// retarget period.
func IsPeriodEnd(height uint32) bool {
	return height%RetargetPeriod == RetargetPeriod-1
}
