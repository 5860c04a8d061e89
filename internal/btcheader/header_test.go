package btcheader

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

// Bitcoin mainnet genesis block and block 1, hex encoded. Hashes are
// in internal byte order.
const (
	genesisHex  = "0100000000000000000000000000000000000000000000000000000000000000000000003ba3edfd7a7b12b27ac72c3e67768f617fc81bc3888a51323a9fb8aa4b1e5e4a29ab5f49ffff001d1dac2b7c"
	genesisHash = "6fe28c0ab6f1b372c1a6a246ae63f74f931e8365e15a089c68d6190000000000"

	block1Hex  = "010000006fe28c0ab6f1b372c1a6a246ae63f74f931e8365e15a089c68d6190000000000982051fd1e4ba744bbbe680e1fee14677ba1a3c3540bf7b1cdb606e857233e0e61bc6649ffff001d01e36299"
	block1Hash = "4860eb18bf1b1620e37e9490fc8a427514416fd75159ab86688e9a8300000000"
)

func mustHeader(t *testing.T, hexStr string) Header {
	t.Helper()
	raw, err := hex.DecodeString(hexStr)
	require.NoError(t, err)
	h, err := Parse(raw)
	require.NoError(t, err)
	return h
}

func TestParse_RejectsWrongSize(t *testing.T) {
	_, err := Parse(make([]byte, 79))
	require.Error(t, err)
	_, err = Parse(make([]byte, 81))
	require.Error(t, err)
	_, err = Parse(nil)
	require.Error(t, err)
}

func TestHeader_GenesisFields(t *testing.T) {
	h := mustHeader(t, genesisHex)

	require.Equal(t, int32(1), h.Version())
	require.Equal(t, [32]byte{}, h.PrevBlock())
	require.Equal(t, uint32(1231006505), h.Timestamp())
	require.Equal(t, uint32(0x1d00ffff), h.Bits())
	require.Equal(t, uint32(2083236893), h.Nonce())

	require.Equal(t, genesisHash, hex.EncodeToString(func() []byte {
		d := h.Hash()
		return d[:]
	}()))
}

func TestHeader_Block1LinksToGenesis(t *testing.T) {
	genesis := mustHeader(t, genesisHex)
	block1 := mustHeader(t, block1Hex)

	require.Equal(t, genesis.Hash(), block1.PrevBlock())

	d := block1.Hash()
	require.Equal(t, block1Hash, hex.EncodeToString(d[:]))
}

func TestHeader_GenesisMeetsItsTarget(t *testing.T) {
	h := mustHeader(t, genesisHex)

	require.Zero(t, h.Target().Cmp(PowLimit))
	require.LessOrEqual(t, HashValue(h.Hash()).Cmp(h.Target()), 0)
}

func TestHeader_DifficultyOneAtPowLimit(t *testing.T) {
	h := mustHeader(t, genesisHex)
	require.True(t, h.Difficulty().Equal(h.Difficulty().Round(0)))
	require.Equal(t, "1", h.Difficulty().String())
}

func TestBitsToTarget_RoundTrip(t *testing.T) {
	for _, bits := range []uint32{0x1d00ffff, 0x1b0404cb, 0x207fffff, 0x181bc330} {
		require.Equal(t, bits, TargetToBits(BitsToTarget(bits)), "bits %#x", bits)
	}
}

func TestBitsToTarget_KnownValue(t *testing.T) {
	// 0x1b0404cb expands to 0x0404cb * 256^(0x1b-3).
	want, _ := new(big.Int).SetString("0404cb000000000000000000000000000000000000000000000000", 16)
	require.Zero(t, BitsToTarget(0x1b0404cb).Cmp(want))
}

func TestNextTarget_UnchangedForExactTimespan(t *testing.T) {
	start := uint32(1_600_000_000)
	next := NextTarget(PowLimit, start, start+TargetTimespan)
	require.Zero(t, next.Cmp(PowLimit))
}

func TestNextTarget_ClampsAdjustment(t *testing.T) {
	prev := BitsToTarget(0x1b0404cb)

	// Blocks came in eight times too fast: adjustment clamps at 1/4.
	fast := NextTarget(prev, 0, TargetTimespan/8)
	wantFast := BitsToTarget(TargetToBits(new(big.Int).Div(prev, big.NewInt(4))))
	require.Zero(t, fast.Cmp(wantFast))

	// Eight times too slow: clamps at 4x.
	slow := NextTarget(prev, 0, TargetTimespan*8)
	wantSlow := BitsToTarget(TargetToBits(new(big.Int).Mul(prev, big.NewInt(4))))
	require.Zero(t, slow.Cmp(wantSlow))
}

func TestNextTarget_CappedAtPowLimit(t *testing.T) {
	next := NextTarget(PowLimit, 0, TargetTimespan*4)
	require.Zero(t, next.Cmp(PowLimit))
}

func TestPeriodBoundaries(t *testing.T) {
	require.True(t, IsPeriodStart(0))
	require.True(t, IsPeriodStart(2016))
	require.False(t, IsPeriodStart(2017))
	require.True(t, IsPeriodEnd(2015))
	require.True(t, IsPeriodEnd(4031))
	require.False(t, IsPeriodEnd(2016))
}
