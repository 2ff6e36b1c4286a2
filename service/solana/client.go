package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/solscope/service/analytics"
	"github.com/brojonat/solscope/service/metrics"
	"github.com/brojonat/solscope/service/telemetry"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// RPC error codes the node uses when a slot has no block to return.
const (
	codeBlockNotAvailable      = -32004
	codeSlotSkipped            = -32007
	codeLongTermStorageMissing = -32009
)

// ErrBlockNotAvailable is returned when the node has no block for a slot
// (skipped, not yet confirmed, or pruned).
var ErrBlockNotAvailable = errors.New("block not available")

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real Solana nodes.
type RPCClient interface {
	GetBlockWithOpts(
		ctx context.Context,
		slot uint64,
		opts *rpc.GetBlockOpts,
	) (*rpc.GetBlockResult, error)

	GetSignaturesForAddressWithOpts(
		ctx context.Context,
		address solana.PublicKey,
		opts *rpc.GetSignaturesForAddressOpts,
	) ([]*rpc.TransactionSignature, error)
}

// Client fetches block and signature data and hands it back in the analytics model.
// It issues exactly one RPC call per method call: no retries, no caching.
type Client struct {
	rpc      RPCClient
	logger   *slog.Logger
	metrics  *metrics.Metrics
	endpoint string // RPC endpoint identifier for metrics (e.g., "mainnet", "devnet", rpc host)
}

// NewClient creates a new Solana client.
// The endpoint parameter is used for metrics labeling (e.g., "mainnet", "devnet", or RPC hostname).
// If metrics is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, endpoint string, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		rpc:      rpcClient,
		logger:   logger,
		metrics:  m,
		endpoint: endpoint,
	}
}

// GetBlock fetches the full block at slot.
// Returns ErrBlockNotAvailable when the node has nothing for that slot.
func (c *Client) GetBlock(ctx context.Context, slot uint64) (*analytics.Block, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "solana.GetBlock")
	defer span.End()
	span.SetAttributes(attribute.Int64("solana.slot", int64(slot)))

	rewards := true
	opts := &rpc.GetBlockOpts{
		Encoding:                       solana.EncodingBase64,
		TransactionDetails:             rpc.TransactionDetailsFull,
		Rewards:                        &rewards,
		MaxSupportedTransactionVersion: &[]uint64{0}[0],
	}

	c.logger.DebugContext(ctx, "calling getBlock", "slot", slot)

	start := time.Now()
	result, err := c.rpc.GetBlockWithOpts(ctx, slot, opts)
	count := 0
	if result != nil {
		count = len(result.Transactions)
	}
	c.observe("getBlock", start, count, err)

	if err != nil {
		if isBlockNotAvailable(err) {
			c.logger.DebugContext(ctx, "block not available", "slot", slot, "error", err)
			span.SetAttributes(attribute.Bool("solana.block_available", false))
			return nil, fmt.Errorf("slot %d: %w", slot, ErrBlockNotAvailable)
		}
		c.logger.ErrorContext(ctx, "failed to get block", "slot", slot, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get block %d: %w", slot, err)
	}
	if result == nil {
		return nil, fmt.Errorf("slot %d: %w", slot, ErrBlockNotAvailable)
	}

	block := blockToRecords(result)
	span.SetAttributes(attribute.Int("solana.transactions", len(block.Transactions)))

	c.logger.DebugContext(ctx, "fetched block",
		"slot", slot,
		"transactions", len(block.Transactions),
		"rewards", len(block.Rewards),
	)

	return block, nil
}

// GetSignatures fetches up to limit of the most recent signatures for address.
// The node returns them newest first and that order is preserved.
func (c *Client) GetSignatures(ctx context.Context, address solana.PublicKey, limit int) ([]analytics.SignatureRecord, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "solana.GetSignatures")
	defer span.End()
	span.SetAttributes(
		attribute.String("solana.address", address.String()),
		attribute.Int("solana.limit", limit),
	)

	if err := ValidateLimit(limit); err != nil {
		return nil, err
	}

	opts := &rpc.GetSignaturesForAddressOpts{
		Limit: &limit,
	}

	c.logger.DebugContext(ctx, "calling getSignaturesForAddress",
		"address", address.String(),
		"limit", limit,
	)

	start := time.Now()
	sigs, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, address, opts)
	c.observe("getSignaturesForAddress", start, len(sigs), err)

	if err != nil {
		c.logger.ErrorContext(ctx, "failed to get signatures",
			"address", address.String(),
			"error", err,
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get signatures for %s: %w", address, err)
	}

	records := make([]analytics.SignatureRecord, 0, len(sigs))
	for _, sig := range sigs {
		if sig == nil {
			continue
		}
		records = append(records, signatureToRecord(sig))
	}

	c.logger.DebugContext(ctx, "fetched signatures",
		"address", address.String(),
		"count", len(records),
	)

	return records, nil
}

func (c *Client) observe(method string, start time.Time, count int, err error) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, c.endpoint, time.Since(start).Seconds())
	if err == nil {
		c.metrics.RecordRPCRecordsPerCall(method, c.endpoint, count)
	}
}

func isBlockNotAvailable(err error) bool {
	if errors.Is(err, rpc.ErrNotConfirmed) || errors.Is(err, rpc.ErrNotFound) {
		return true
	}
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		case codeBlockNotAvailable, codeSlotSkipped, codeLongTermStorageMissing:
			return true
		}
	}
	return false
}
