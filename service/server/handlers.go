package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/brojonat/solscope/service/analytics"
	"github.com/brojonat/solscope/service/metrics"
	natspkg "github.com/brojonat/solscope/service/nats"
	"github.com/brojonat/solscope/service/solana"
)

// handleGetBlock returns a handler that analyzes one block.
// GET /api/v1/blocks/{slot}
func handleGetBlock(fetcher Fetcher, rpcTimeout time.Duration, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.PathValue("slot")
		slot, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			logger.DebugContext(r.Context(), "invalid slot", "slot", raw, "error", err)
			writeError(w, "invalid slot: must be a non-negative integer", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), rpcTimeout)
		defer cancel()

		block, err := fetcher.GetBlock(ctx, slot)
		if err != nil {
			if errors.Is(err, solana.ErrBlockNotAvailable) {
				writeError(w, err.Error(), http.StatusNotFound)
				return
			}
			logger.ErrorContext(r.Context(), "failed to fetch block", "slot", slot, "error", err)
			writeError(w, err.Error(), http.StatusBadGateway)
			return
		}

		report := analytics.BuildBlockReport(slot, block)
		if report == nil {
			writeError(w, solana.ErrBlockNotAvailable.Error(), http.StatusNotFound)
			return
		}
		recordAnalysis(m, "block", report.TransactionCount, report.Summary != nil, func() float64 {
			return float64(report.Summary.SuccessRatePct)
		})

		logger.DebugContext(r.Context(), "block analyzed",
			"slot", slot,
			"transactions", report.TransactionCount,
		)

		writeJSON(w, report, http.StatusOK)
	})
}

// handleGetActivity returns a handler that analyzes recent signatures for an
// address. Wallet and program views share it and differ by kind and default limit.
// GET /api/v1/wallets/{address}/activity?limit=N
// GET /api/v1/programs/{address}/activity?limit=N
func handleGetActivity(
	kind analytics.Kind,
	defaultLimit int,
	fetcher Fetcher,
	publisher natspkg.Publisher,
	rpcTimeout time.Duration,
	m *metrics.Metrics,
	logger *slog.Logger,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")

		pk, err := solana.ParseAddress(address)
		if err != nil {
			logger.DebugContext(r.Context(), "invalid address", "address", address, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		limit, err := parseLimit(r.URL.Query().Get("limit"), defaultLimit)
		if err != nil {
			logger.DebugContext(r.Context(), "invalid limit", "limit", r.URL.Query().Get("limit"), "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), rpcTimeout)
		defer cancel()

		records, err := fetcher.GetSignatures(ctx, pk, limit)
		if err != nil {
			if errors.Is(err, solana.ErrInvalidLimit) {
				writeError(w, err.Error(), http.StatusBadRequest)
				return
			}
			logger.ErrorContext(r.Context(), "failed to fetch signatures",
				"address", address,
				"kind", kind,
				"error", err,
			)
			writeError(w, err.Error(), http.StatusBadGateway)
			return
		}

		report := analytics.BuildActivityReport(address, kind, limit, records, time.Now().UTC())
		recordAnalysis(m, string(kind), len(records), report.Summary != nil, func() float64 {
			return float64(report.Summary.SuccessRatePct)
		})

		if publisher != nil {
			if err := publisher.PublishActivity(r.Context(), natspkg.FromActivityReport(report)); err != nil {
				// The report is still served; subscribers just miss this one.
				logger.WarnContext(r.Context(), "failed to publish activity event",
					"address", address,
					"error", err,
				)
			}
		}

		logger.DebugContext(r.Context(), "activity analyzed",
			"address", address,
			"kind", kind,
			"limit", limit,
			"records", len(records),
		)

		writeJSON(w, report, http.StatusOK)
	})
}

// parseLimit reads the limit query parameter, falling back to def when absent.
func parseLimit(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errorf("invalid limit %q: must be an integer", raw)
	}
	if err := solana.ValidateLimit(limit); err != nil {
		return 0, err
	}
	return limit, nil
}

func recordAnalysis(m *metrics.Metrics, view string, records int, ok bool, rate func() float64) {
	if m == nil {
		return
	}
	if !ok {
		m.RecordAnalysis(view, "no_data", records)
		return
	}
	m.RecordAnalysis(view, "ok", records)
	m.RecordSuccessRate(view, rate())
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// errorf creates a formatted error.
func errorf(format string, args ...interface{}) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string {
	return e.msg
}
