package analytics

import (
	"strconv"
)

// ConfirmationStatus is the durability level the node reports for a signature.
// The zero value means the node sent null.
type ConfirmationStatus string

const (
	StatusProcessed ConfirmationStatus = "processed"
	StatusConfirmed ConfirmationStatus = "confirmed"
	StatusFinalized ConfirmationStatus = "finalized"
)

// TransactionMeta is the execution metadata of a transaction inside a block.
// Err holds the raw error object from the node; nil means the transaction succeeded.
type TransactionMeta struct {
	Err any    `json:"err"`
	Fee uint64 `json:"fee"`
}

// TransactionBody carries the parts of the transaction message we read.
type TransactionBody struct {
	Signatures []string `json:"signatures"`
}

// TransactionRecord is one transaction of a block as returned by getBlock.
// Both fields may be missing; every accessor below is nil-safe.
type TransactionRecord struct {
	Meta        *TransactionMeta `json:"meta"`
	Transaction *TransactionBody `json:"transaction"`
}

// Failed reports whether the node attached an error to the transaction.
// A record without meta is treated as successful.
func (r TransactionRecord) Failed() bool {
	return r.Meta != nil && r.Meta.Err != nil
}

// Signature returns the first signature of the transaction, or "" when absent.
func (r TransactionRecord) Signature() string {
	if r.Transaction == nil || len(r.Transaction.Signatures) == 0 {
		return ""
	}
	return r.Transaction.Signatures[0]
}

// Reward is a single reward entry attached to a block.
type Reward struct {
	Pubkey      string `json:"pubkey"`
	Lamports    int64  `json:"lamports"`
	PostBalance uint64 `json:"postBalance"`
	RewardType  string `json:"rewardType,omitempty"`
}

// Block is the subset of a getBlock result the dashboard works with.
type Block struct {
	Blockhash         string              `json:"blockhash"`
	PreviousBlockhash string              `json:"previousBlockhash"`
	ParentSlot        uint64              `json:"parentSlot"`
	BlockTime         *int64              `json:"blockTime"`
	BlockHeight       *uint64             `json:"blockHeight"`
	Transactions      []TransactionRecord `json:"transactions"`
	Rewards           []Reward            `json:"rewards"`
}

// SignatureRecord is one entry of a getSignaturesForAddress result.
type SignatureRecord struct {
	Signature          string             `json:"signature"`
	Slot               uint64             `json:"slot"`
	BlockTime          *int64             `json:"blockTime"`
	ConfirmationStatus ConfirmationStatus `json:"confirmationStatus"`
	Err                any                `json:"err"`
	Memo               *string            `json:"memo,omitempty"`
}

// Failed reports whether the node attached an error to the signature.
func (r SignatureRecord) Failed() bool {
	return r.Err != nil
}

// Percent is a percentage rounded to one fraction digit.
// It always renders with exactly one digit after the point, e.g. 70.0.
type Percent float64

func (p Percent) String() string {
	return strconv.FormatFloat(float64(p), 'f', 1, 64)
}

// MarshalJSON renders the value as a JSON number with one fraction digit.
func (p Percent) MarshalJSON() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalJSON accepts the number form produced by MarshalJSON.
func (p *Percent) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*p = Percent(v)
	return nil
}
