package sdk

import (
	"context"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/dbirdge/btcrelay/internal/btcheader"
	models "github.com/dbirdge/btcrelay/internal/infrastructure/blockchain/solana/models"
)

// Initialize invokes the program's initialize handler, anchoring the
// on-chain relay at the genesis header. Returns the transaction
// signature.
func (c *Client) Initialize(ctx context.Context, req models.InitializeRequest) (string, error) {
	if len(req.GenesisHeader) != btcheader.Size {
		return "", fmt.Errorf("genesis header is %d bytes, want %d", len(req.GenesisHeader), btcheader.Size)
	}
	payer, err := signer(req.PayerPrivateKey)
	if err != nil {
		return "", err
	}
	relayState, _, err := common.FindProgramAddress([][]byte{relayStateSeed}, c.programID)
	if err != nil {
		return "", err
	}

	data := newInstructionData("initialize").
		writeBytes(req.GenesisHeader).
		writeUint32(req.GenesisHeight).
		writeBytes(req.GenesisHash[:]).
		bytes()

	inst := types.Instruction{
		ProgramID: c.programID,
		Accounts: []types.AccountMeta{
			{PubKey: relayState, IsSigner: false, IsWritable: true},
			{PubKey: payer.PublicKey, IsSigner: true, IsWritable: true},
			{PubKey: common.SystemProgramID, IsSigner: false, IsWritable: false},
		},
		Data: data,
	}
	return c.send(ctx, payer, inst)
}

// SubmitBlockHeader invokes submit_block_header with one raw header
// and its claimed hash.
func (c *Client) SubmitBlockHeader(ctx context.Context, req models.SubmitBlockHeaderRequest) (string, error) {
	if len(req.Header) != btcheader.Size {
		return "", fmt.Errorf("header is %d bytes, want %d", len(req.Header), btcheader.Size)
	}
	payer, err := signer(req.PayerPrivateKey)
	if err != nil {
		return "", err
	}
	relayState, _, err := common.FindProgramAddress([][]byte{relayStateSeed}, c.programID)
	if err != nil {
		return "", err
	}

	data := newInstructionData("submit_block_header").
		writeBytes(req.Header).
		writeBytes(req.BlockHash[:]).
		bytes()

	inst := types.Instruction{
		ProgramID: c.programID,
		Accounts: []types.AccountMeta{
			{PubKey: relayState, IsSigner: false, IsWritable: true},
			{PubKey: payer.PublicKey, IsSigner: true, IsWritable: false},
		},
		Data: data,
	}
	return c.send(ctx, payer, inst)
}

// SubmitBlockHeaderBatch invokes submit_block_header_batch with a run
// of consecutive headers.
func (c *Client) SubmitBlockHeaderBatch(ctx context.Context, req models.SubmitBlockHeaderBatchRequest) (string, error) {
	if len(req.Headers) == 0 {
		return "", fmt.Errorf("empty header batch")
	}
	for i, h := range req.Headers {
		if len(h) != btcheader.Size {
			return "", fmt.Errorf("header %d is %d bytes, want %d", i, len(h), btcheader.Size)
		}
	}
	payer, err := signer(req.PayerPrivateKey)
	if err != nil {
		return "", err
	}
	relayState, _, err := common.FindProgramAddress([][]byte{relayStateSeed}, c.programID)
	if err != nil {
		return "", err
	}

	data := newInstructionData("submit_block_header_batch").
		writeVecFixed(req.Headers).
		bytes()

	inst := types.Instruction{
		ProgramID: c.programID,
		Accounts: []types.AccountMeta{
			{PubKey: relayState, IsSigner: false, IsWritable: true},
			{PubKey: payer.PublicKey, IsSigner: true, IsWritable: false},
		},
		Data: data,
	}
	return c.send(ctx, payer, inst)
}

// VerifyTx invokes verify_tx, submitting an SPV inclusion proof for
// on-chain verification.
func (c *Client) VerifyTx(ctx context.Context, req models.VerifyTxRequest) (string, error) {
	if len(req.Header) != btcheader.Size {
		return "", fmt.Errorf("header is %d bytes, want %d", len(req.Header), btcheader.Size)
	}
	payer, err := signer(req.PayerPrivateKey)
	if err != nil {
		return "", err
	}
	relayState, _, err := common.FindProgramAddress([][]byte{relayStateSeed}, c.programID)
	if err != nil {
		return "", err
	}

	data := newInstructionData("verify_tx").
		writeUint32(req.Height).
		writeUint64(req.Index).
		writeBytes(req.TxID[:]).
		writeBytes(req.Header).
		writeVecBytes(req.Proof).
		writeUint64(req.Confirmations).
		writeBool(req.Insecure).
		bytes()

	inst := types.Instruction{
		ProgramID: c.programID,
		Accounts: []types.AccountMeta{
			{PubKey: relayState, IsSigner: false, IsWritable: false},
			{PubKey: payer.PublicKey, IsSigner: true, IsWritable: false},
		},
		Data: data,
	}
	return c.send(ctx, payer, inst)
}
