package sdk

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
)

// anchorDiscriminator returns the 8-byte instruction discriminator the
// Anchor framework derives from the handler name.
func anchorDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("global:" + name))
	return sum[:8]
}

// instructionData builds borsh-encoded Anchor instruction data: the
// discriminator followed by each argument in declaration order.
type instructionData struct {
	buf bytes.Buffer
}

func newInstructionData(name string) *instructionData {
	d := &instructionData{}
	d.buf.Write(anchorDiscriminator(name))
	return d
}

// writeBytes appends a fixed-size byte array ([u8; N] in the IDL).
func (d *instructionData) writeBytes(b []byte) *instructionData {
	d.buf.Write(b)
	return d
}

// writeVecBytes appends a Vec<u8>: u32 length prefix then raw bytes.
func (d *instructionData) writeVecBytes(b []byte) *instructionData {
	d.writeUint32(uint32(len(b)))
	d.buf.Write(b)
	return d
}

// writeVecFixed appends a Vec<[u8; N]>: u32 element count then each
// fixed-size element back to back.
func (d *instructionData) writeVecFixed(elems [][]byte) *instructionData {
	d.writeUint32(uint32(len(elems)))
	for _, e := range elems {
		d.buf.Write(e)
	}
	return d
}

func (d *instructionData) writeUint32(v uint32) *instructionData {
	_ = binary.Write(&d.buf, binary.LittleEndian, v)
	return d
}

func (d *instructionData) writeUint64(v uint64) *instructionData {
	_ = binary.Write(&d.buf, binary.LittleEndian, v)
	return d
}

func (d *instructionData) writeBool(v bool) *instructionData {
	if v {
		d.buf.WriteByte(1)
	} else {
		d.buf.WriteByte(0)
	}
	return d
}

func (d *instructionData) bytes() []byte {
	return d.buf.Bytes()
}
