package domain

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Holding is the user's open position in one instrument: the held amount and
// the weighted-average price paid for it. One Holding per instrument id; a
// holding whose amount reaches zero is removed from the set, never kept as a
// zero row.
type Holding struct {
	CoinID     string          `json:"coin_id"`
	Name       string          `json:"name"`
	Symbol     string          `json:"symbol"`
	Amount     decimal.Decimal `json:"amount"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	Image      string          `json:"image"`
}

// NewHolding opens a position with the first purchase.
func NewHolding(quote Quote, amount, price decimal.Decimal) (*Holding, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("holding amount must be greater than zero")
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("entry price must be greater than zero")
	}

	return &Holding{
		CoinID:     quote.ID,
		Name:       quote.Name,
		Symbol:     quote.Symbol,
		Amount:     amount,
		EntryPrice: price,
		Image:      quote.Image,
	}, nil
}

// AddLot folds another purchase into the position, recomputing the entry
// price as the quantity-weighted mean of everything paid so far.
func (h *Holding) AddLot(amount, price decimal.Decimal) {
	total := h.Amount.Add(amount)
	if total.LessThanOrEqual(decimal.Zero) {
		return
	}

	existingNotional := h.EntryPrice.Mul(h.Amount)
	addedNotional := price.Mul(amount)
	h.EntryPrice = existingNotional.Add(addedNotional).Div(total)
	h.Amount = total
}

// Reduce shrinks the position by the sold amount. The entry price is left
// untouched: a partial sale does not change the average cost of what remains.
// Returns true when the position is fully liquidated.
func (h *Holding) Reduce(amount decimal.Decimal) bool {
	h.Amount = h.Amount.Sub(amount)
	return h.Amount.LessThanOrEqual(decimal.Zero)
}

// EntryValue is the cost basis of the current amount.
func (h *Holding) EntryValue() decimal.Decimal {
	return h.EntryPrice.Mul(h.Amount)
}

// PnL calculates profit and loss of the position at the given market price.
func (h *Holding) PnL(currentPrice decimal.Decimal) decimal.Decimal {
	return currentPrice.Sub(h.EntryPrice).Mul(h.Amount)
}
