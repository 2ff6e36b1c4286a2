package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/brojonat/solscope/service/analytics"
	"github.com/brojonat/solscope/service/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSig1 = "5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7"
	testSig2 = "2TgM4N8qCMqLvfR8dxqTQgKygPNzT5KQkN5b5sT7eZPEkdxyLTXGnNQB3j7KG4DPFg5Qez5yNJBQRQ5r7DDnFfjG"
	testSig3 = "3LzUfBWvh7uN5sNTVPkbDGq5SNrPBKDYTJqFmH8nHq6Z9VGJ7iCxB2rLFZsKrQNuJfTnKQ5D5YqGrNqvnKQZXMQE"

	testWallet = "11111111111111111111111111111111"
)

// mockRPCClient implements RPCClient for testing.
// It's behavior-focused: we set what it should return, not verify call sequences.
type mockRPCClient struct {
	block      *rpc.GetBlockResult
	signatures []*rpc.TransactionSignature
	err        error

	lastBlockOpts *rpc.GetBlockOpts
	lastSigOpts   *rpc.GetSignaturesForAddressOpts
	calls         int
}

func (m *mockRPCClient) GetBlockWithOpts(
	ctx context.Context,
	slot uint64,
	opts *rpc.GetBlockOpts,
) (*rpc.GetBlockResult, error) {
	m.calls++
	m.lastBlockOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.block, nil
}

func (m *mockRPCClient) GetSignaturesForAddressWithOpts(
	ctx context.Context,
	address solana.PublicKey,
	opts *rpc.GetSignaturesForAddressOpts,
) ([]*rpc.TransactionSignature, error) {
	m.calls++
	m.lastSigOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.signatures, nil
}

func newTestClient(mock *mockRPCClient) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(mock, "test", metrics.NewMetrics(prometheus.NewRegistry()), logger)
}

// legacyTxBase64 encodes a minimal legacy transaction: one signature,
// two account keys, zero instructions.
func legacyTxBase64(t *testing.T, sig string) string {
	t.Helper()

	s := solana.MustSignatureFromBase58(sig)
	buf := []byte{1}
	buf = append(buf, s[:]...)
	buf = append(buf, 1, 0, 1) // header
	buf = append(buf, 2)       // account keys
	buf = append(buf, make([]byte, 64)...)
	buf = append(buf, make([]byte, 32)...) // recent blockhash
	buf = append(buf, 0)                   // instructions
	return base64.StdEncoding.EncodeToString(buf)
}

func TestGetBlock_ConvertsResult(t *testing.T) {
	raw := `{
		"blockhash": "11111111111111111111111111111111",
		"previousBlockhash": "11111111111111111111111111111111",
		"parentSlot": 99,
		"blockTime": 1700000000,
		"blockHeight": 88,
		"transactions": [
			{"meta": {"err": null, "fee": 5000}, "transaction": ["` + legacyTxBase64(t, testSig1) + `", "base64"]},
			{"meta": {"err": {"InstructionError": [0, {"Custom": 6001}]}, "fee": 5000}, "transaction": ["` + legacyTxBase64(t, testSig2) + `", "base64"]},
			{"meta": null}
		],
		"rewards": [
			{"pubkey": "11111111111111111111111111111111", "lamports": 2500000000, "postBalance": 10, "rewardType": "Fee", "commission": null}
		]
	}`
	var result rpc.GetBlockResult
	require.NoError(t, json.Unmarshal([]byte(raw), &result))

	mock := &mockRPCClient{block: &result}
	client := newTestClient(mock)

	block, err := client.GetBlock(context.Background(), 100)
	require.NoError(t, err)
	require.NotNil(t, block)

	assert.Equal(t, uint64(99), block.ParentSlot)
	assert.Equal(t, "11111111111111111111111111111111", block.PreviousBlockhash)
	require.NotNil(t, block.BlockTime)
	assert.Equal(t, int64(1700000000), *block.BlockTime)
	require.NotNil(t, block.BlockHeight)
	assert.Equal(t, uint64(88), *block.BlockHeight)

	require.Len(t, block.Transactions, 3)
	assert.Equal(t, testSig1, block.Transactions[0].Signature())
	assert.False(t, block.Transactions[0].Failed())
	assert.Equal(t, testSig2, block.Transactions[1].Signature())
	assert.True(t, block.Transactions[1].Failed())
	assert.Nil(t, block.Transactions[2].Meta)
	assert.False(t, block.Transactions[2].Failed())

	require.Len(t, block.Rewards, 1)
	assert.Equal(t, int64(2500000000), block.Rewards[0].Lamports)
	assert.Equal(t, "Fee", block.Rewards[0].RewardType)

	// Request shape
	require.NotNil(t, mock.lastBlockOpts)
	assert.Equal(t, rpc.TransactionDetailsFull, mock.lastBlockOpts.TransactionDetails)
	require.NotNil(t, mock.lastBlockOpts.MaxSupportedTransactionVersion)
	assert.Equal(t, uint64(0), *mock.lastBlockOpts.MaxSupportedTransactionVersion)

	summary := analytics.AnalyzeBlock(block.Transactions)
	require.NotNil(t, summary)
	assert.Equal(t, 2, summary.SuccessCount)
	assert.Equal(t, 1, summary.FailureCount)
	assert.Equal(t, "66.7", summary.SuccessRatePct.String())
}

func TestGetBlock_NotAvailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "not confirmed", err: rpc.ErrNotConfirmed},
		{name: "slot skipped", err: &jsonrpc.RPCError{Code: -32007, Message: "Slot 100 was skipped"}},
		{name: "pruned", err: &jsonrpc.RPCError{Code: -32009, Message: "Slot 100 missing in long-term storage"}},
		{name: "not available", err: &jsonrpc.RPCError{Code: -32004, Message: "Block not available for slot 100"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(&mockRPCClient{err: tt.err})
			block, err := client.GetBlock(context.Background(), 100)
			require.Error(t, err)
			assert.Nil(t, block)
			assert.ErrorIs(t, err, ErrBlockNotAvailable)
		})
	}
}

func TestGetBlock_NilResult(t *testing.T) {
	client := newTestClient(&mockRPCClient{})
	block, err := client.GetBlock(context.Background(), 100)
	assert.ErrorIs(t, err, ErrBlockNotAvailable)
	assert.Nil(t, block)
}

func TestGetBlock_RPCError(t *testing.T) {
	client := newTestClient(&mockRPCClient{err: errors.New("connection refused")})
	block, err := client.GetBlock(context.Background(), 100)
	require.Error(t, err)
	assert.Nil(t, block)
	assert.NotErrorIs(t, err, ErrBlockNotAvailable)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGetSignatures_PreservesOrder(t *testing.T) {
	now := solana.UnixTimeSeconds(time.Now().Unix())
	past1 := solana.UnixTimeSeconds(time.Now().Unix() - 10)
	memo := "hello"

	mock := &mockRPCClient{
		signatures: []*rpc.TransactionSignature{
			{
				Signature:          solana.MustSignatureFromBase58(testSig1),
				Slot:               100,
				BlockTime:          &now,
				ConfirmationStatus: rpc.ConfirmationStatusFinalized,
				Memo:               &memo,
			},
			{
				Signature:          solana.MustSignatureFromBase58(testSig2),
				Slot:               99,
				BlockTime:          &past1,
				ConfirmationStatus: rpc.ConfirmationStatusConfirmed,
				Err:                map[string]interface{}{"InstructionError": []interface{}{0, "Custom error"}},
			},
			{
				Signature: solana.MustSignatureFromBase58(testSig3),
				Slot:      98,
			},
		},
	}

	client := newTestClient(mock)
	records, err := client.GetSignatures(context.Background(), solana.MustPublicKeyFromBase58(testWallet), 10)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, testSig1, records[0].Signature)
	assert.Equal(t, uint64(100), records[0].Slot)
	assert.Equal(t, analytics.StatusFinalized, records[0].ConfirmationStatus)
	require.NotNil(t, records[0].Memo)
	assert.Equal(t, "hello", *records[0].Memo)
	assert.False(t, records[0].Failed())

	assert.Equal(t, testSig2, records[1].Signature)
	assert.True(t, records[1].Failed())

	assert.Nil(t, records[2].BlockTime)
	assert.Equal(t, analytics.ConfirmationStatus(""), records[2].ConfirmationStatus)

	require.NotNil(t, mock.lastSigOpts)
	require.NotNil(t, mock.lastSigOpts.Limit)
	assert.Equal(t, 10, *mock.lastSigOpts.Limit)
}

func TestGetSignatures_Empty(t *testing.T) {
	client := newTestClient(&mockRPCClient{signatures: []*rpc.TransactionSignature{}})
	records, err := client.GetSignatures(context.Background(), solana.MustPublicKeyFromBase58(testWallet), 5)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestGetSignatures_ErrorFromRPC(t *testing.T) {
	client := newTestClient(&mockRPCClient{err: assert.AnError})
	records, err := client.GetSignatures(context.Background(), solana.MustPublicKeyFromBase58(testWallet), 10)
	require.Error(t, err)
	assert.Nil(t, records)
}

func TestGetSignatures_RejectsLimitBeforeCalling(t *testing.T) {
	mock := &mockRPCClient{}
	client := newTestClient(mock)

	_, err := client.GetSignatures(context.Background(), solana.MustPublicKeyFromBase58(testWallet), 51)
	assert.ErrorIs(t, err, ErrInvalidLimit)
	assert.Equal(t, 0, mock.calls)
}

func TestGetSignatures_NilMetrics(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewClient(&mockRPCClient{}, "test", nil, logger)
	records, err := client.GetSignatures(context.Background(), solana.MustPublicKeyFromBase58(testWallet), 5)
	require.NoError(t, err)
	assert.Empty(t, records)
}
