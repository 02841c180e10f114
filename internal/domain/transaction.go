package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind is the side of a recorded trade.
type TransactionKind string

const (
	TransactionBuy  TransactionKind = "buy"
	TransactionSell TransactionKind = "sell"
)

// TransactionLogCap bounds the transaction history: the oldest entry is
// evicted once the log grows past it.
const TransactionLogCap = 50

// Transaction is an immutable record of one executed trade. The log is
// append-only, newest first.
type Transaction struct {
	ID     string          `json:"id"`
	Kind   TransactionKind `json:"kind"`
	Coin   string          `json:"coin"`
	Symbol string          `json:"symbol"`
	Amount decimal.Decimal `json:"amount"`
	// Price unit price at execution time.
	Price      decimal.Decimal `json:"price"`
	TotalValue decimal.Decimal `json:"total_value"`
	// Profit realized P/L for sells, zero for buys.
	Profit    decimal.Decimal `json:"profit"`
	CreatedAt time.Time       `json:"created_at"`
}
