package solana

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// Transaction retry settings
	maxTransactionRetries  = 4
	initialRetryDelay      = 500 * time.Millisecond
	maxRetryDelay          = 5 * time.Second
	retryBackoffMultiplier = 2.0
)

// ErrNoHolders is returned when a mint has no token accounts with a balance
var ErrNoHolders = errors.New("no token holders")

// Holder is one token account and its raw balance
type Holder struct {
	Address string
	Amount  string
}

// Supply is the raw total supply of a mint
type Supply struct {
	Amount   string
	Decimals uint8
}

// ChainClient is the read-only query surface used by discovery and enrichment
type ChainClient interface {
	ParsedTransaction(ctx context.Context, signature string) (*rpc.GetParsedTransactionResult, error)
	LargestHolder(ctx context.Context, mint string) (*Holder, error)
	TokenSupply(ctx context.Context, mint string) (*Supply, error)
	TokenMetadata(ctx context.Context, mint string) (*TokenMetadata, error)
}

// Client implements ChainClient on top of a JSON-RPC endpoint
type Client struct {
	rpc        *rpc.Client
	limiter    *rate.Limiter
	retryDelay time.Duration
}

// NewClient creates a client for endpoint. rps <= 0 disables rate limiting.
func NewClient(endpoint string, rps int) *Client {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), rps)
	}
	return &Client{
		rpc:        rpc.New(endpoint),
		limiter:    limiter,
		retryDelay: initialRetryDelay,
	}
}

func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	if errors.Is(err, rpc.ErrNotFound) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

// ParsedTransaction fetches a confirmed transaction in parsed form. A freshly
// announced transaction may not be queryable yet, so "not found" responses are
// retried with exponential backoff.
func (c *Client) ParsedTransaction(ctx context.Context, signature string) (*rpc.GetParsedTransactionResult, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature %q: %w", signature, err)
	}

	maxVersion := uint64(0)
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= maxTransactionRetries; attempt++ {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		tx, err := c.rpc.GetParsedTransaction(ctx, sig, &rpc.GetParsedTransactionOpts{
			Commitment:                     rpc.CommitmentConfirmed,
			MaxSupportedTransactionVersion: &maxVersion,
		})
		if err == nil && tx != nil {
			if attempt > 0 {
				log.WithFields(log.Fields{
					"signature":      signature,
					"retry_attempts": attempt,
				}).Debug("Retrieved transaction after retries")
			}
			return tx, nil
		}
		if err == nil {
			err = rpc.ErrNotFound
		}

		lastErr = err
		if !isNotFound(err) {
			return nil, fmt.Errorf("get transaction %s: %w", signature, err)
		}
		if attempt >= maxTransactionRetries {
			break
		}

		log.WithFields(log.Fields{
			"signature":      signature,
			"attempt":        attempt + 1,
			"retry_delay_ms": delay.Milliseconds(),
		}).Debug("Transaction not found, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * retryBackoffMultiplier)
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}

	return nil, fmt.Errorf("get transaction %s after %d attempts: %w", signature, maxTransactionRetries+1, lastErr)
}

// LargestHolder returns the token account holding the most of mint
func (c *Client) LargestHolder(ctx context.Context, mint string) (*Holder, error) {
	mintPubkey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return nil, fmt.Errorf("invalid mint %q: %w", mint, err)
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	res, err := c.rpc.GetTokenLargestAccounts(ctx, mintPubkey, rpc.CommitmentConfirmed)
	if err != nil {
		return nil, fmt.Errorf("get largest accounts of %s: %w", mint, err)
	}
	if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
		return nil, ErrNoHolders
	}

	top := res.Value[0]
	return &Holder{
		Address: top.Address.String(),
		Amount:  top.Amount,
	}, nil
}

// TokenSupply returns the raw total supply of mint
func (c *Client) TokenSupply(ctx context.Context, mint string) (*Supply, error) {
	mintPubkey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return nil, fmt.Errorf("invalid mint %q: %w", mint, err)
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	res, err := c.rpc.GetTokenSupply(ctx, mintPubkey, rpc.CommitmentConfirmed)
	if err != nil {
		return nil, fmt.Errorf("get supply of %s: %w", mint, err)
	}
	if res == nil || res.Value == nil {
		return nil, fmt.Errorf("empty supply response for %s", mint)
	}
	return &Supply{
		Amount:   res.Value.Amount,
		Decimals: res.Value.Decimals,
	}, nil
}

// TokenMetadata fetches and decodes the Metaplex metadata account of mint
func (c *Client) TokenMetadata(ctx context.Context, mint string) (*TokenMetadata, error) {
	mintPubkey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return nil, fmt.Errorf("invalid mint %q: %w", mint, err)
	}
	metadataAddress, err := MetadataAddress(mintPubkey)
	if err != nil {
		return nil, err
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	accountInfo, err := c.rpc.GetAccountInfo(ctx, metadataAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata: %w", err)
	}
	if accountInfo == nil || accountInfo.Value == nil || accountInfo.Value.Data == nil {
		return nil, fmt.Errorf("no metadata found for mint: %s", mint)
	}
	if !accountInfo.Value.Owner.Equals(MetadataProgramID) {
		return nil, fmt.Errorf("%w: %s owned by %s", ErrNotMetadataAccount, metadataAddress, accountInfo.Value.Owner)
	}

	return DecodeTokenMetadata(accountInfo.Value.Data.GetBinary())
}
