package entities

import (
	"github.com/dbirdge/btcrelay/pkg/shared/domain/entities"
)

type (
	// HexHeader is an 80-byte Bitcoin block header, hex encoded.
	HexHeader string
	// HexHash is a 32-byte hash in internal byte order, hex encoded.
	HexHash string
)

// HeaderAnnouncement is one block header arriving on the feed topic.
// Hash and Height are the feed's claims; the relay re-derives and
// validates both.
type HeaderAnnouncement struct {
	entities.Entity

	Header HexHeader `json:"header"`
	Hash   HexHash   `json:"hash"`
	Height uint32    `json:"height"`
}

// RelayEventKind classifies how an accepted header changed the chain.
type RelayEventKind string

const (
	RelayEventExtended RelayEventKind = "extended"
	RelayEventForked   RelayEventKind = "forked"
	RelayEventReorged  RelayEventKind = "reorged"
)

// RelayEvent is published after a header is accepted locally and
// mirrored on chain. Signature is empty when chain submission is
// disabled.
type RelayEvent struct {
	entities.Entity

	Kind      RelayEventKind `json:"kind"`
	Hash      HexHash        `json:"hash"`
	Height    uint32         `json:"height"`
	ChainID   uint64         `json:"chainId"`
	Signature string         `json:"signature,omitempty"`
}
