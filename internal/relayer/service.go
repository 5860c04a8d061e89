package relayer

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	domainents "github.com/dbirdge/btcrelay/internal/domain/entities"
	domainrepos "github.com/dbirdge/btcrelay/internal/domain/repositories"
	models "github.com/dbirdge/btcrelay/internal/infrastructure/blockchain/solana/models"
	"github.com/dbirdge/btcrelay/internal/relay"
	"github.com/dbirdge/btcrelay/internal/retry"
)

// ChainSubmitter mirrors locally accepted headers to the on-chain
// relay program. Satisfied by the solana sdk client.
type ChainSubmitter interface {
	SubmitBlockHeader(ctx context.Context, req models.SubmitBlockHeaderRequest) (string, error)
}

// Config assembles a relayer service.
type Config struct {
	Relay *relay.Relay

	// Feed delivers HeaderAnnouncement entities.
	Feed domainrepos.MessageQueueConsumer

	// Events receives RelayEvent entities for accepted headers.
	// Optional.
	Events domainrepos.MessageQueueProducer

	// Chain mirrors accepted headers on chain. Optional: nil runs
	// the relay in local-only mode.
	Chain           ChainSubmitter
	PayerPrivateKey string

	Retry  retry.Config
	Logger *slog.Logger
}

// Service consumes header announcements, applies them to the local
// relay and mirrors accepted headers to the on-chain program. Headers
// failing local validation are dropped: resubmitting bad feed data
// cannot succeed. Chain submission failures are retried, since they
// are usually transient RPC conditions.
type Service struct {
	relay    *relay.Relay
	feed     domainrepos.MessageQueueConsumer
	events   domainrepos.MessageQueueProducer
	chain    ChainSubmitter
	payerKey string
	retryCfg retry.Config
	logger   *slog.Logger
}

func New(cfg Config) (*Service, error) {
	if cfg.Relay == nil {
		return nil, errors.New("relayer: Relay is required")
	}
	if cfg.Feed == nil {
		return nil, errors.New("relayer: Feed is required")
	}
	if cfg.Chain != nil && cfg.PayerPrivateKey == "" {
		return nil, errors.New("relayer: PayerPrivateKey is required for chain submission")
	}
	retryCfg := cfg.Retry
	if retryCfg.MaxAttempts == 0 {
		retryCfg = retry.DefaultConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		relay:    cfg.Relay,
		feed:     cfg.Feed,
		events:   cfg.Events,
		chain:    cfg.Chain,
		payerKey: cfg.PayerPrivateKey,
		retryCfg: retryCfg,
		logger:   logger,
	}, nil
}

// Run processes the feed until the context is cancelled or the feed
// channel closes. Store failures abort the run; malformed or invalid
// announcements are logged and skipped.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("relayer started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("relayer stopping", "reason", ctx.Err())
			return nil
		case err, ok := <-s.feed.Errors():
			if ok && err != nil {
				s.logger.Warn("feed error", "error", err)
			}
		case e, ok := <-s.feed.ToConsumeBuffered():
			if !ok {
				s.logger.Info("feed closed, relayer stopping")
				return nil
			}
			if err := s.handle(ctx, e); err != nil {
				return err
			}
		}
	}
}

func (s *Service) handle(ctx context.Context, e any) error {
	ann, ok := e.(domainents.HeaderAnnouncement)
	if !ok {
		s.logger.Warn("unexpected entity on feed", "entity", fmt.Sprintf("%T", e))
		return nil
	}

	raw, err := hex.DecodeString(string(ann.Header))
	if err != nil {
		s.logger.Warn("malformed header hex", "error", err)
		return nil
	}
	hashBytes, err := hex.DecodeString(string(ann.Hash))
	if err != nil || len(hashBytes) != 32 {
		s.logger.Warn("malformed block hash", "hash", ann.Hash)
		return nil
	}
	var blockHash [32]byte
	copy(blockHash[:], hashBytes)

	result, err := s.relay.SubmitBlockHeader(raw, blockHash)
	if err != nil {
		if isValidationError(err) {
			s.logger.Warn("header rejected",
				"hash", ann.Hash,
				"claimed_height", ann.Height,
				"error", err)
			return nil
		}
		return fmt.Errorf("apply header: %w", err)
	}
	if ann.Height != 0 && ann.Height != result.Height {
		s.logger.Warn("feed height claim differs from chain position",
			"claimed", ann.Height, "actual", result.Height)
	}

	signature, err := s.mirror(ctx, raw, blockHash)
	if err != nil {
		// Local state already advanced; surface the gap but keep
		// consuming, the chain can be caught up by resubmission.
		s.logger.Error("chain submission failed",
			"hash", ann.Hash,
			"height", result.Height,
			"error", err)
	}

	s.publish(result, signature)
	return nil
}

// mirror pushes one header to the on-chain program with retries.
func (s *Service) mirror(ctx context.Context, raw []byte, blockHash [32]byte) (string, error) {
	if s.chain == nil {
		return "", nil
	}
	var signature string
	err := retry.Do(ctx, s.retryCfg, func() error {
		sig, err := s.chain.SubmitBlockHeader(ctx, models.SubmitBlockHeaderRequest{
			PayerPrivateKey: s.payerKey,
			Header:          raw,
			BlockHash:       blockHash,
		})
		if err != nil {
			return err
		}
		signature = sig
		return nil
	})
	if err != nil {
		return "", err
	}
	return signature, nil
}

func (s *Service) publish(result *relay.SubmitResult, signature string) {
	if s.events == nil {
		return
	}
	kind := domainents.RelayEventExtended
	switch {
	case result.Reorged:
		kind = domainents.RelayEventReorged
	case result.NewFork:
		kind = domainents.RelayEventForked
	}
	event := domainents.RelayEvent{
		Kind:      kind,
		Hash:      domainents.HexHash(hex.EncodeToString(result.Hash[:])),
		Height:    result.Height,
		ChainID:   result.ChainID,
		Signature: signature,
	}
	select {
	case s.events.ToProduceBuffered() <- event:
	default:
		s.logger.Warn("event queue full, dropping relay event",
			"hash", event.Hash, "height", event.Height)
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		relay.ErrInvalidHeaderSize,
		relay.ErrInvalidBlockHash,
		relay.ErrDuplicateBlock,
		relay.ErrPreviousBlockNotFound,
		relay.ErrLowDifficulty,
		relay.ErrIncorrectDifficultyTarget,
		relay.ErrInvalidDifficultyPeriod,
		relay.ErrNotChainExtension,
		relay.ErrForkNotFound,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
