package analytics

import (
	"time"
)

// PreviewSize is how many transactions or signatures a report lists individually.
const PreviewSize = 10

// Kind distinguishes the two address views. Both run the same analysis.
type Kind string

const (
	KindWallet  Kind = "wallet"
	KindProgram Kind = "program"
)

// TransactionPreview is a compact line for a block transaction listing.
type TransactionPreview struct {
	Signature string `json:"signature"`
	Failed    bool   `json:"failed"`
}

// BlockReport is everything the block view renders for one slot.
type BlockReport struct {
	Slot               uint64               `json:"slot"`
	Blockhash          string               `json:"blockhash"`
	PreviousBlockhash  string               `json:"previousBlockhash"`
	ParentSlot         uint64               `json:"parentSlot"`
	BlockTime          *int64               `json:"blockTime"`
	BlockHeight        *uint64              `json:"blockHeight"`
	TransactionCount   int                  `json:"transactionCount"`
	Rewards            RewardTotal          `json:"rewards"`
	Summary            *BlockSummary        `json:"summary"`
	RecentTransactions []TransactionPreview `json:"recentTransactions"`
}

// BuildBlockReport composes the block view for slot. A nil block yields nil.
func BuildBlockReport(slot uint64, block *Block) *BlockReport {
	if block == nil {
		return nil
	}

	report := &BlockReport{
		Slot:              slot,
		Blockhash:         block.Blockhash,
		PreviousBlockhash: block.PreviousBlockhash,
		ParentSlot:        block.ParentSlot,
		BlockTime:         block.BlockTime,
		BlockHeight:       block.BlockHeight,
		TransactionCount:  len(block.Transactions),
		Rewards:           SumRewards(block.Rewards),
		Summary:           AnalyzeBlock(block.Transactions),
	}

	n := min(PreviewSize, len(block.Transactions))
	report.RecentTransactions = make([]TransactionPreview, 0, n)
	for _, tx := range block.Transactions[:n] {
		report.RecentTransactions = append(report.RecentTransactions, TransactionPreview{
			Signature: tx.Signature(),
			Failed:    tx.Failed(),
		})
	}

	return report
}

// ActivityReport is everything the wallet and program views render for one address.
type ActivityReport struct {
	Address            string            `json:"address"`
	Kind               Kind              `json:"kind"`
	Limit              int               `json:"limit"`
	Summary            *SignatureSummary `json:"summary"`
	StatusDistribution []StatusCount     `json:"statusDistribution"`
	Timeline           []TimelineBucket  `json:"timeline"`
	RecentSignatures   []SignatureRecord `json:"recentSignatures"`
	GeneratedAt        time.Time         `json:"generatedAt"`
}

// BuildActivityReport runs the signature analyzers over records and bundles
// their output. Timeline buckets are keyed in the process's local zone.
func BuildActivityReport(address string, kind Kind, limit int, records []SignatureRecord, now time.Time) *ActivityReport {
	n := min(PreviewSize, len(records))
	recent := make([]SignatureRecord, n)
	copy(recent, records[:n])

	return &ActivityReport{
		Address:            address,
		Kind:               kind,
		Limit:              limit,
		Summary:            AnalyzeSignatures(records),
		StatusDistribution: BuildStatusDistribution(records),
		Timeline:           BuildTimeline(records),
		RecentSignatures:   recent,
		GeneratedAt:        now,
	}
}
