package analytics

import (
	"math/big"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// BlockSummary holds the success/failure split of a block's transactions.
type BlockSummary struct {
	SuccessCount   int     `json:"successCount"`
	FailureCount   int     `json:"failureCount"`
	SuccessRatePct Percent `json:"successRatePct"`
}

// AnalyzeBlock partitions the transactions of a block by outcome.
// It returns nil when there is nothing to analyze.
func AnalyzeBlock(txs []TransactionRecord) *BlockSummary {
	if len(txs) == 0 {
		return nil
	}

	summary := &BlockSummary{}
	for _, tx := range txs {
		if tx.Failed() {
			summary.FailureCount++
		} else {
			summary.SuccessCount++
		}
	}
	summary.SuccessRatePct = ratePct(summary.SuccessCount, len(txs))

	return summary
}

// RewardTotal is the sum of the rewards paid out in a block.
type RewardTotal struct {
	Count    int     `json:"count"`
	Lamports int64   `json:"lamports"`
	SOL      float64 `json:"sol"`
}

// SumRewards adds up the lamports of all rewards. Rent and voting rewards
// can be negative, so the total is signed.
func SumRewards(rewards []Reward) RewardTotal {
	var total RewardTotal
	for _, r := range rewards {
		total.Lamports += r.Lamports
	}
	total.Count = len(rewards)
	total.SOL = float64(total.Lamports) / LamportsPerSOL
	return total
}

// ratePct returns part/whole as a percentage rounded to one decimal.
// whole must be positive.
func ratePct(part, whole int) Percent {
	return Percent(round1(float64(part) / float64(whole) * 100))
}

// round1 rounds the exact binary value of v to one decimal, ties away from
// zero. Scaling v by 10 in floating point first would round twice.
func round1(v float64) float64 {
	r := new(big.Rat).SetFloat64(v)
	if r == nil {
		return v
	}
	neg := r.Sign() < 0
	r.Abs(r)
	r.Mul(r, big.NewRat(10, 1))
	r.Add(r, big.NewRat(1, 2))
	n := new(big.Int).Quo(r.Num(), r.Denom())
	if neg {
		n.Neg(n)
	}
	out, _ := new(big.Rat).SetFrac(n, big.NewInt(10)).Float64()
	return out
}
