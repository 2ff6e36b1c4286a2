package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/brojonat/solscope/service/analytics"
	"github.com/itchyny/gojq"
)

// compileJQ parses and compiles a jq expression.
func compileJQ(expr string) (*gojq.Code, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq filter %q: %w", expr, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq filter %q: %w", expr, err)
	}
	return code, nil
}

// toJQInput round-trips v through JSON so gojq sees plain maps and slices.
func toJQInput(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal output: %w", err)
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode output: %w", err)
	}
	return out, nil
}

// writeJSON prints v as indented JSON, or every result of code run over v
// when code is non-nil.
func writeJSON(w io.Writer, v interface{}, code *gojq.Code) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if code == nil {
		return enc.Encode(v)
	}

	input, err := toJQInput(v)
	if err != nil {
		return err
	}

	iter := code.Run(input)
	for {
		result, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, isErr := result.(error); isErr {
			return fmt.Errorf("jq filter failed: %w", err)
		}
		if err := enc.Encode(result); err != nil {
			return err
		}
	}
}

// matchesAll reports whether every filter yields a truthy first result for v.
func matchesAll(v interface{}, codes []*gojq.Code) bool {
	if len(codes) == 0 {
		return true
	}
	input, err := toJQInput(v)
	if err != nil {
		return false
	}
	for _, code := range codes {
		iter := code.Run(input)
		result, ok := iter.Next()
		if !ok {
			return false
		}
		if _, isErr := result.(error); isErr {
			return false
		}
		if !isTruthy(result) {
			return false
		}
	}
	return true
}

func isTruthy(v interface{}) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	// Everything else (numbers, strings, objects, arrays) is truthy
	return true
}

func formatBlockTime(t *int64) string {
	if t == nil {
		return "unknown"
	}
	return time.Unix(*t, 0).Local().Format("2006-01-02 15:04:05 MST")
}

func printBlockReport(w io.Writer, r *analytics.BlockReport) {
	fmt.Fprintf(w, "Block %d\n", r.Slot)
	fmt.Fprintf(w, "  Blockhash:    %s\n", r.Blockhash)
	fmt.Fprintf(w, "  Previous:     %s\n", r.PreviousBlockhash)
	fmt.Fprintf(w, "  Parent slot:  %d\n", r.ParentSlot)
	fmt.Fprintf(w, "  Block time:   %s\n", formatBlockTime(r.BlockTime))
	if r.BlockHeight != nil {
		fmt.Fprintf(w, "  Height:       %d\n", *r.BlockHeight)
	}
	fmt.Fprintf(w, "  Transactions: %d\n", r.TransactionCount)
	fmt.Fprintf(w, "  Rewards:      %d totaling %.9f SOL\n", r.Rewards.Count, r.Rewards.SOL)

	if r.Summary == nil {
		fmt.Fprintln(w, "\nNo transactions in this block")
		return
	}

	fmt.Fprintf(w, "  Success rate: %s%% (%d succeeded, %d failed)\n",
		r.Summary.SuccessRatePct, r.Summary.SuccessCount, r.Summary.FailureCount)

	fmt.Fprintf(w, "\nFirst %d transactions:\n", len(r.RecentTransactions))
	for _, tx := range r.RecentTransactions {
		mark := "✓"
		if tx.Failed {
			mark = "✗"
		}
		fmt.Fprintf(w, "  %s %s\n", mark, tx.Signature)
	}
}

func printActivityReport(w io.Writer, r *analytics.ActivityReport) {
	title := "Wallet"
	if r.Kind == analytics.KindProgram {
		title = "Program"
	}
	fmt.Fprintf(w, "%s %s (last %d signatures)\n", title, r.Address, r.Limit)

	if r.Summary == nil {
		fmt.Fprintln(w, "\nNo transactions found")
		return
	}

	s := r.Summary
	fmt.Fprintf(w, "  Transactions:        %d\n", s.Total)
	fmt.Fprintf(w, "  Confirmed/finalized: %d\n", s.ConfirmedFinalized)
	fmt.Fprintf(w, "  Errors:              %d\n", s.ErrorCount)
	fmt.Fprintf(w, "  Success rate:        %s%%\n", s.SuccessRatePct)
	fmt.Fprintf(w, "  Avg between tx:      %ds\n", s.AvgSecondsBetweenTx)
	fmt.Fprintf(w, "  Activity span:       %dh\n", s.ActivitySpanHours)
	if s.NewestTimestamp > 0 {
		fmt.Fprintf(w, "  Newest:              %s\n", formatBlockTime(&s.NewestTimestamp))
		fmt.Fprintf(w, "  Oldest:              %s\n", formatBlockTime(&s.OldestTimestamp))
	}

	if len(r.StatusDistribution) > 0 {
		fmt.Fprintln(w, "\nStatus distribution:")
		for _, sc := range r.StatusDistribution {
			fmt.Fprintf(w, "  %-10s %d\n", sc.Status, sc.Count)
		}
	}

	if len(r.Timeline) > 0 {
		fmt.Fprintln(w, "\nTimeline:")
		for _, b := range r.Timeline {
			fmt.Fprintf(w, "  %-12s tx=%d errors=%d\n", b.BucketKey, b.TxCount, b.ErrorCount)
		}
	}

	if len(r.RecentSignatures) > 0 {
		fmt.Fprintln(w, "\nRecent signatures:")
		for _, sig := range r.RecentSignatures {
			mark := "✓"
			if sig.Failed() {
				mark = "✗"
			}
			status := string(sig.ConfirmationStatus)
			if status == "" {
				status = "unknown"
			}
			fmt.Fprintf(w, "  %s %s  slot=%d  %s\n", mark, sig.Signature, sig.Slot, status)
		}
	}
}
