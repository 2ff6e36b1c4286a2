package solana

import (
	"github.com/brojonat/solscope/service/analytics"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// blockToRecords converts a getBlock result into the analytics model.
// Transactions that cannot be decoded keep their meta but carry no signature.
func blockToRecords(result *rpc.GetBlockResult) *analytics.Block {
	block := &analytics.Block{
		Blockhash:         result.Blockhash.String(),
		PreviousBlockhash: result.PreviousBlockhash.String(),
		ParentSlot:        result.ParentSlot,
		BlockTime:         unixPtr(result.BlockTime),
		BlockHeight:       result.BlockHeight,
	}

	if result.Transactions != nil {
		block.Transactions = make([]analytics.TransactionRecord, 0, len(result.Transactions))
		for _, twm := range result.Transactions {
			block.Transactions = append(block.Transactions, transactionToRecord(twm))
		}
	}

	if result.Rewards != nil {
		block.Rewards = make([]analytics.Reward, 0, len(result.Rewards))
		for _, r := range result.Rewards {
			block.Rewards = append(block.Rewards, analytics.Reward{
				Pubkey:      r.Pubkey.String(),
				Lamports:    r.Lamports,
				PostBalance: r.PostBalance,
				RewardType:  string(r.RewardType),
			})
		}
	}

	return block
}

func transactionToRecord(twm rpc.TransactionWithMeta) analytics.TransactionRecord {
	var rec analytics.TransactionRecord

	if twm.Meta != nil {
		rec.Meta = &analytics.TransactionMeta{
			Err: twm.Meta.Err,
			Fee: twm.Meta.Fee,
		}
	}

	if twm.Transaction != nil {
		if tx, err := twm.GetTransaction(); err == nil && tx != nil {
			rec.Transaction = &analytics.TransactionBody{
				Signatures: signaturesToStrings(tx.Signatures),
			}
		}
	}

	return rec
}

// signatureToRecord converts one getSignaturesForAddress entry.
func signatureToRecord(sig *rpc.TransactionSignature) analytics.SignatureRecord {
	return analytics.SignatureRecord{
		Signature:          sig.Signature.String(),
		Slot:               sig.Slot,
		BlockTime:          unixPtr(sig.BlockTime),
		ConfirmationStatus: analytics.ConfirmationStatus(sig.ConfirmationStatus),
		Err:                sig.Err,
		Memo:               sig.Memo,
	}
}

func signaturesToStrings(sigs []solana.Signature) []string {
	out := make([]string, len(sigs))
	for i, s := range sigs {
		out[i] = s.String()
	}
	return out
}

func unixPtr(t *solana.UnixTimeSeconds) *int64 {
	if t == nil {
		return nil
	}
	v := int64(*t)
	return &v
}
