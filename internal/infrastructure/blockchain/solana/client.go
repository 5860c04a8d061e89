package sdk

import (
	"context"
	"fmt"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"

	models "github.com/dbirdge/btcrelay/internal/infrastructure/blockchain/solana/models"
)

// DefaultProgramID is the deployed btc_relay program.
const DefaultProgramID = "7iY5TvGUTxfPX2vD71k6xkHCTDKDquruKLtikL9Pmtk7"

// relayStateSeed derives the relay-state PDA.
var relayStateSeed = []byte("relay_state")

type Client struct {
	c         *client.Client
	programID common.PublicKey
}

// Network defines Solana cluster
type Network string

const (
	NetworkMainnet  Network = "mainnet"
	NetworkDevnet   Network = "devnet"
	NetworkTestnet  Network = "testnet"
	NetworkLocalnet Network = "localnet"
)

func DefaultRPCURL(network Network) string {
	switch network {
	case NetworkMainnet:
		return "https://api.mainnet-beta.solana.com"
	case NetworkTestnet:
		return "https://api.testnet.solana.com"
	case NetworkLocalnet:
		return "http://127.0.0.1:8899"
	case NetworkDevnet:
		fallthrough
	default:
		return "https://api.devnet.solana.com"
	}
}

func NewClient(rpcURL, programID string) *Client {
	if programID == "" {
		programID = DefaultProgramID
	}
	return &Client{
		c:         client.NewClient(rpcURL),
		programID: common.PublicKeyFromString(programID),
	}
}

func NewClientForNetwork(network Network) *Client {
	return NewClient(DefaultRPCURL(network), DefaultProgramID)
}

func (c *Client) SwitchNetworkByURL(rpcURL string) {
	c.c = client.NewClient(rpcURL)
}

func (c *Client) SwitchNetwork(network Network) {
	c.SwitchNetworkByURL(DefaultRPCURL(network))
}

// ProgramID returns the relay program this client is bound to.
func (c *Client) ProgramID() string {
	return c.programID.ToBase58()
}

// RelayStateAddress derives the relay-state PDA for the program.
func (c *Client) RelayStateAddress() (string, error) {
	pda, _, err := common.FindProgramAddress([][]byte{relayStateSeed}, c.programID)
	if err != nil {
		return "", err
	}
	return pda.ToBase58(), nil
}

// GetBalance returns balance in lamports for a given public key (base58)
func (c *Client) GetBalance(ctx context.Context, req models.BalanceRequest) (uint64, error) {
	pub := common.PublicKeyFromString(req.PublicKey)
	bal, err := c.c.GetBalance(ctx, pub.ToBase58())
	if err != nil {
		return 0, err
	}
	return bal, nil
}

// RequestAirdrop requests airdrop to the given public key (base58) in lamports
func (c *Client) RequestAirdrop(ctx context.Context, req models.AirdropRequest) (string, error) {
	pub := common.PublicKeyFromString(req.PublicKey)
	sig, err := c.c.RequestAirdrop(ctx, pub.ToBase58(), req.Lamports)
	if err != nil {
		return "", err
	}
	return sig, nil
}

// signer decodes a base58 private key (64 bytes) into an account.
func signer(privateKey string) (types.Account, error) {
	privBytes, err := base58.Decode(privateKey)
	if err != nil {
		return types.Account{}, err
	}
	if len(privBytes) != 64 {
		return types.Account{}, fmt.Errorf("invalid private key length: expected 64 bytes")
	}
	return types.AccountFromBytes(privBytes)
}

// send signs and submits a single-instruction transaction, returning
// the transaction signature.
func (c *Client) send(ctx context.Context, payer types.Account, inst types.Instruction) (string, error) {
	recent, err := c.c.GetLatestBlockhash(ctx)
	if err != nil {
		return "", err
	}
	tx, err := types.NewTransaction(types.NewTransactionParam{
		Message: types.NewMessage(types.NewMessageParam{
			FeePayer:        payer.PublicKey,
			RecentBlockhash: recent.Blockhash,
			Instructions:    []types.Instruction{inst},
		}),
		Signers: []types.Account{payer},
	})
	if err != nil {
		return "", err
	}
	return c.c.SendTransaction(ctx, tx)
}
