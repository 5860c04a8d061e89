package solana

// Account is a Solana keypair in base58 form, used as the relayer's
// fee payer.
type Account struct {
	PublicKey  string
	PrivateKey string
}
