package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/brojonat/solscope/service/analytics"
	"github.com/brojonat/solscope/service/config"
	"github.com/brojonat/solscope/service/metrics"
	natspkg "github.com/brojonat/solscope/service/nats"
	"github.com/brojonat/solscope/service/solana"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"

// mockFetcher returns canned data and remembers the last request.
type mockFetcher struct {
	mu sync.Mutex

	block      *analytics.Block
	blockErr   error
	records    []analytics.SignatureRecord
	recordsErr error

	lastSlot    uint64
	lastAddress solanago.PublicKey
	lastLimit   int
}

func (f *mockFetcher) GetBlock(ctx context.Context, slot uint64) (*analytics.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSlot = slot
	return f.block, f.blockErr
}

func (f *mockFetcher) GetSignatures(ctx context.Context, address solanago.PublicKey, limit int) ([]analytics.SignatureRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAddress = address
	f.lastLimit = limit
	return f.records, f.recordsErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		ServerAddr:          ":0",
		SolanaRPCURL:        "http://localhost:8899",
		RPCTimeout:          5 * time.Second,
		DefaultWalletLimit:  10,
		DefaultProgramLimit: 5,
	}
}

func newTestHandler(fetcher Fetcher, publisher *natspkg.MockPublisher) http.Handler {
	var pub natspkg.Publisher
	var sub natspkg.Subscriber
	if publisher != nil {
		pub = publisher
		sub = publisher
	}
	srv := New(":0", testConfig(), fetcher, pub, sub, metrics.NewMetrics(prometheus.NewRegistry()), testLogger())
	return srv.Handler()
}

func doGet(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func int64Ptr(v int64) *int64 { return &v }

func testBlock() *analytics.Block {
	txs := make([]analytics.TransactionRecord, 0, 12)
	for i := 0; i < 12; i++ {
		tx := analytics.TransactionRecord{
			Meta:        &analytics.TransactionMeta{Fee: 5000},
			Transaction: &analytics.TransactionBody{Signatures: []string{fmt.Sprintf("sig%d", i)}},
		}
		if i%3 == 2 {
			tx.Meta.Err = map[string]any{"InstructionError": []any{0, "Custom"}}
		}
		txs = append(txs, tx)
	}
	return &analytics.Block{
		Blockhash:    "GHtXQBsoZHVnNFa9YevAzFr17DJjgHXk3ycTKD5xD3Zi",
		ParentSlot:   99,
		BlockTime:    int64Ptr(1700000000),
		Transactions: txs,
		Rewards: []analytics.Reward{
			{Pubkey: testAddress, Lamports: 1_500_000_000, RewardType: "Fee"},
		},
	}
}

func TestGetBlock_Success(t *testing.T) {
	fetcher := &mockFetcher{block: testBlock()}
	h := newTestHandler(fetcher, nil)

	rec := doGet(t, h, "/api/v1/blocks/100")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, uint64(100), fetcher.lastSlot)

	var report analytics.BlockReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))

	assert.Equal(t, uint64(100), report.Slot)
	assert.Equal(t, 12, report.TransactionCount)
	require.NotNil(t, report.Summary)
	assert.Equal(t, 8, report.Summary.SuccessCount)
	assert.Equal(t, 4, report.Summary.FailureCount)
	assert.Equal(t, "66.7", report.Summary.SuccessRatePct.String())
	assert.Equal(t, 1, report.Rewards.Count)
	assert.InDelta(t, 1.5, report.Rewards.SOL, 1e-9)
	assert.Len(t, report.RecentTransactions, analytics.PreviewSize)
	assert.Contains(t, rec.Body.String(), `"successRatePct":66.7`)
}

func TestGetBlock_EmptyBlock(t *testing.T) {
	fetcher := &mockFetcher{block: &analytics.Block{ParentSlot: 1}}
	h := newTestHandler(fetcher, nil)

	rec := doGet(t, h, "/api/v1/blocks/2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"summary":null`)
}

func TestGetBlock_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		fetcher    *mockFetcher
		wantStatus int
		wantError  string
	}{
		{
			name:       "non numeric slot",
			path:       "/api/v1/blocks/abc",
			fetcher:    &mockFetcher{},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid slot",
		},
		{
			name:       "negative slot",
			path:       "/api/v1/blocks/-1",
			fetcher:    &mockFetcher{},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid slot",
		},
		{
			name:       "block not available",
			path:       "/api/v1/blocks/100",
			fetcher:    &mockFetcher{blockErr: fmt.Errorf("slot 100: %w", solana.ErrBlockNotAvailable)},
			wantStatus: http.StatusNotFound,
			wantError:  "block not available",
		},
		{
			name:       "nil block",
			path:       "/api/v1/blocks/100",
			fetcher:    &mockFetcher{},
			wantStatus: http.StatusNotFound,
			wantError:  "block not available",
		},
		{
			name:       "rpc failure",
			path:       "/api/v1/blocks/100",
			fetcher:    &mockFetcher{blockErr: errors.New("failed to get block 100: connection refused")},
			wantStatus: http.StatusBadGateway,
			wantError:  "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doGet(t, newTestHandler(tt.fetcher, nil), tt.path)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, decodeError(t, rec), tt.wantError)
		})
	}
}

func walletRecords() []analytics.SignatureRecord {
	// 10 records, 3 failing, newest first, one hour apart.
	records := make([]analytics.SignatureRecord, 0, 10)
	for i := 0; i < 10; i++ {
		rec := analytics.SignatureRecord{
			Signature:          fmt.Sprintf("sig%d", i),
			Slot:               uint64(1000 - i),
			BlockTime:          int64Ptr(1700000000 - int64(i)*3600),
			ConfirmationStatus: analytics.StatusFinalized,
		}
		if i < 3 {
			rec.Err = map[string]any{"InstructionError": []any{0, "Custom"}}
		}
		records = append(records, rec)
	}
	return records
}

func TestGetActivity_DefaultLimits(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantLimit int
		wantKind  analytics.Kind
	}{
		{name: "wallet", path: "/api/v1/wallets/" + testAddress + "/activity", wantLimit: 10, wantKind: analytics.KindWallet},
		{name: "program", path: "/api/v1/programs/" + testAddress + "/activity", wantLimit: 5, wantKind: analytics.KindProgram},
		{name: "explicit limit", path: "/api/v1/wallets/" + testAddress + "/activity?limit=50", wantLimit: 50, wantKind: analytics.KindWallet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &mockFetcher{records: walletRecords()}
			rec := doGet(t, newTestHandler(fetcher, nil), tt.path)
			require.Equal(t, http.StatusOK, rec.Code)

			assert.Equal(t, tt.wantLimit, fetcher.lastLimit)
			assert.Equal(t, testAddress, fetcher.lastAddress.String())

			var report analytics.ActivityReport
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
			assert.Equal(t, tt.wantKind, report.Kind)
			assert.Equal(t, tt.wantLimit, report.Limit)
			assert.Equal(t, testAddress, report.Address)
		})
	}
}

func TestGetActivity_Report(t *testing.T) {
	fetcher := &mockFetcher{records: walletRecords()}
	publisher := natspkg.NewMockPublisher()
	h := newTestHandler(fetcher, publisher)

	rec := doGet(t, h, "/api/v1/wallets/"+testAddress+"/activity")
	require.Equal(t, http.StatusOK, rec.Code)

	var report analytics.ActivityReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))

	require.NotNil(t, report.Summary)
	assert.Equal(t, 10, report.Summary.Total)
	assert.Equal(t, 10, report.Summary.ConfirmedFinalized)
	assert.Equal(t, 3, report.Summary.ErrorCount)
	assert.Equal(t, "70.0", report.Summary.SuccessRatePct.String())
	assert.Equal(t, int64(3600), report.Summary.AvgSecondsBetweenTx)
	assert.Equal(t, int64(9), report.Summary.ActivitySpanHours)
	assert.Equal(t, []analytics.StatusCount{{Status: analytics.StatusFinalized, Count: 10}}, report.StatusDistribution)
	assert.Len(t, report.Timeline, 10)
	assert.Len(t, report.RecentSignatures, 10)
	assert.Contains(t, rec.Body.String(), `"successRatePct":70.0`)

	events := publisher.GetPublishedEventsForAddress(testAddress)
	require.Len(t, events, 1)
	assert.Equal(t, analytics.KindWallet, events[0].Kind)
	assert.Equal(t, 10, events[0].Total)
	assert.Equal(t, 3, events[0].ErrorCount)
}

func TestGetActivity_NoData(t *testing.T) {
	fetcher := &mockFetcher{records: nil}
	publisher := natspkg.NewMockPublisher()
	h := newTestHandler(fetcher, publisher)

	rec := doGet(t, h, "/api/v1/programs/"+testAddress+"/activity")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `"summary":null`)
	assert.Contains(t, body, `"statusDistribution":[]`)
	assert.Contains(t, body, `"timeline":[]`)
	assert.Equal(t, 1, publisher.GetPublishedEventCount())
}

func TestGetActivity_PublishFailureStillServes(t *testing.T) {
	fetcher := &mockFetcher{records: walletRecords()}
	publisher := natspkg.NewMockPublisher()
	publisher.SetPublishError(errors.New("nats unavailable"))
	h := newTestHandler(fetcher, publisher)

	rec := doGet(t, h, "/api/v1/wallets/"+testAddress+"/activity")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, publisher.GetPublishedEventCount())
}

func TestGetActivity_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		fetcher    *mockFetcher
		wantStatus int
		wantError  string
	}{
		{
			name:       "invalid address characters",
			path:       "/api/v1/wallets/0OIl0OIl/activity",
			fetcher:    &mockFetcher{},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid address",
		},
		{
			name:       "address wrong length",
			path:       "/api/v1/programs/abc/activity",
			fetcher:    &mockFetcher{},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid address",
		},
		{
			name:       "limit below range",
			path:       "/api/v1/wallets/" + testAddress + "/activity?limit=4",
			fetcher:    &mockFetcher{},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid limit",
		},
		{
			name:       "limit above range",
			path:       "/api/v1/wallets/" + testAddress + "/activity?limit=51",
			fetcher:    &mockFetcher{},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid limit",
		},
		{
			name:       "limit not a number",
			path:       "/api/v1/wallets/" + testAddress + "/activity?limit=ten",
			fetcher:    &mockFetcher{},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid limit",
		},
		{
			name:       "rpc failure",
			path:       "/api/v1/wallets/" + testAddress + "/activity",
			fetcher:    &mockFetcher{recordsErr: errors.New("failed to get signatures: 429 Too Many Requests")},
			wantStatus: http.StatusBadGateway,
			wantError:  "429 Too Many Requests",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doGet(t, newTestHandler(tt.fetcher, nil), tt.path)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, decodeError(t, rec), tt.wantError)
		})
	}
}

func TestHealthAndCORS(t *testing.T) {
	h := newTestHandler(&mockFetcher{}, nil)

	rec := doGet(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/blocks/1", nil)
	preflight := httptest.NewRecorder()
	h.ServeHTTP(preflight, req)
	assert.Equal(t, http.StatusNoContent, preflight.Code)
}

func TestStreamRoutesDisabledWithoutNATS(t *testing.T) {
	h := newTestHandler(&mockFetcher{}, nil)
	rec := doGet(t, h, "/api/v1/stream/activity")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
