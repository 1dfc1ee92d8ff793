package entity

import (
	"fmt"
	"math/big"
	"strings"
)

// TransactionFeeRecord holds what is needed to price a single transaction.
type TransactionFeeRecord struct {
	Hash     string   `json:"hash"`
	From     string   `json:"from"`
	GasPrice *big.Int `json:"-"`
	// GasUsed is the hex quantity exactly as the receipt reports it.
	GasUsed string `json:"gasUsed"`
}

// Fee returns gasUsed * gasPrice in wei.
func (r TransactionFeeRecord) Fee() (*big.Int, error) {
	hex := strings.TrimPrefix(strings.TrimPrefix(r.GasUsed, "0x"), "0X")
	if hex == "" {
		return nil, fmt.Errorf("empty gasUsed for transaction %s", r.Hash)
	}
	gasUsed, ok := new(big.Int).SetString(hex, 16)
	if !ok {
		return nil, fmt.Errorf("invalid gasUsed %q for transaction %s", r.GasUsed, r.Hash)
	}
	if r.GasPrice == nil {
		return nil, fmt.Errorf("missing gasPrice for transaction %s", r.Hash)
	}
	return gasUsed.Mul(gasUsed, r.GasPrice), nil
}

// SenderFee is the total fee paid by one sender.
type SenderFee struct {
	From string   `json:"from"`
	Fee  *big.Int `json:"-"`
}

// RawTransaction is the subset of eth_getTransactionByHash used for fees.
type RawTransaction struct {
	Hash     string
	From     string
	GasPrice *big.Int
}

// RawReceipt is the subset of eth_getTransactionReceipt used for fees.
type RawReceipt struct {
	TransactionHash string
	GasUsed         string
}
