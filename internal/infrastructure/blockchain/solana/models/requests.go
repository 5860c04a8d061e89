package models

type BalanceRequest struct {
	PublicKey string
}

type AirdropRequest struct {
	PublicKey string
	Lamports  uint64
}

type InitializeRequest struct {
	PayerPrivateKey string
	GenesisHeader   []byte
	GenesisHeight   uint32
	GenesisHash     [32]byte
}

type SubmitBlockHeaderRequest struct {
	PayerPrivateKey string
	Header          []byte
	BlockHash       [32]byte
}

type SubmitBlockHeaderBatchRequest struct {
	PayerPrivateKey string
	Headers         [][]byte
}

type VerifyTxRequest struct {
	PayerPrivateKey string
	Height          uint32
	Index           uint64
	TxID            [32]byte
	Header          []byte
	Proof           []byte
	Confirmations   uint64
	Insecure        bool
}

type Account struct {
	PublicKey  string
	PrivateKey string
}
