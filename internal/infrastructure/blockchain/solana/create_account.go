package sdk

import (
	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"

	entities "github.com/dbirdge/btcrelay/internal/domain/entities/solana"
	"github.com/dbirdge/btcrelay/internal/infrastructure/blockchain/solana/mappers"
	"github.com/dbirdge/btcrelay/internal/infrastructure/blockchain/solana/models"
)

// CreateAccount generates a fresh keypair, typically used as the
// relayer's payer on localnet where it can be funded by airdrop.
func (c *Client) CreateAccount() entities.Account {
	account := types.NewAccount()

	return mappers.FromAccount(models.Account{
		PrivateKey: base58.Encode(account.PrivateKey),
		PublicKey:  base58.Encode(account.PrivateKey[32:]),
	})
}
