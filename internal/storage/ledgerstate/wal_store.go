// Package ledgerstate persists the portfolio ledger in a write-ahead log.
// Every mutation appends one full snapshot record, so balance, holdings and
// the transaction log always commit together: a reader can never observe a
// partially applied trade.
package ledgerstate

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/gowal"
	"github.com/vadiminshakov/chiptrader/internal/domain"
)

const (
	DefaultDir = "./wal/ledger"

	segmentLimit = 500
	maxSegments  = 10

	ledgerStateKey = "ledger_state"
)

// State is the persisted snapshot of all three ledger entities. Field names
// keep the storage contract of the original key-value layout.
type State struct {
	Chips        string              `json:"userChips"`
	Holdings     []StoredHolding     `json:"userPortfolio"`
	Transactions []StoredTransaction `json:"userTransactions"`
}

// StoredHolding is a serializable snapshot of domain.Holding.
type StoredHolding struct {
	CoinID     string `json:"coin_id"`
	Name       string `json:"name"`
	Symbol     string `json:"symbol"`
	Amount     string `json:"amount"`
	EntryPrice string `json:"entry_price"`
	Image      string `json:"image"`
}

// StoredTransaction is a serializable snapshot of domain.Transaction.
type StoredTransaction struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Coin       string    `json:"coin"`
	Symbol     string    `json:"symbol"`
	Amount     string    `json:"amount"`
	Price      string    `json:"price"`
	TotalValue string    `json:"total_value"`
	Profit     string    `json:"profit"`
	CreatedAt  time.Time `json:"created_at"`
}

// WALStore persists ledger snapshots in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.Mutex
}

// NewWALStore initializes a WAL-backed ledger store.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "ledger_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init ledger WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save appends one snapshot record.
func (s *WALStore) Save(state State) error {
	if s == nil || s.wal == nil {
		return errors.New("ledger store is not initialized")
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "marshal ledger state")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, ledgerStateKey, payload)
}

// Load replays the WAL and returns the most recent snapshot, or nil when no
// snapshot was ever written.
func (s *WALStore) Load() (*State, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("ledger store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var latest []byte
	for m := range s.wal.Iterator() {
		if m.Key == ledgerStateKey {
			latest = m.Value
		}
	}
	if latest == nil {
		return nil, nil
	}

	var state State
	if err := json.Unmarshal(latest, &state); err != nil {
		return nil, errors.Wrap(err, "decode ledger state")
	}
	return &state, nil
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}

// NewStoredHolding converts a domain holding into its stored representation.
func NewStoredHolding(h *domain.Holding) StoredHolding {
	return StoredHolding{
		CoinID:     h.CoinID,
		Name:       h.Name,
		Symbol:     h.Symbol,
		Amount:     h.Amount.String(),
		EntryPrice: h.EntryPrice.String(),
		Image:      h.Image,
	}
}

// ToHolding reconstructs the domain holding from stored data.
func (sh StoredHolding) ToHolding() (*domain.Holding, error) {
	amount, err := decimal.NewFromString(sh.Amount)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s holding amount", sh.CoinID)
	}
	entryPrice, err := decimal.NewFromString(sh.EntryPrice)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s holding entry price", sh.CoinID)
	}

	return &domain.Holding{
		CoinID:     sh.CoinID,
		Name:       sh.Name,
		Symbol:     sh.Symbol,
		Amount:     amount,
		EntryPrice: entryPrice,
		Image:      sh.Image,
	}, nil
}

// NewStoredTransaction converts a domain transaction into its stored
// representation.
func NewStoredTransaction(tx domain.Transaction) StoredTransaction {
	return StoredTransaction{
		ID:         tx.ID,
		Kind:       string(tx.Kind),
		Coin:       tx.Coin,
		Symbol:     tx.Symbol,
		Amount:     tx.Amount.String(),
		Price:      tx.Price.String(),
		TotalValue: tx.TotalValue.String(),
		Profit:     tx.Profit.String(),
		CreatedAt:  tx.CreatedAt,
	}
}

// ToTransaction reconstructs the domain transaction from stored data.
func (st StoredTransaction) ToTransaction() (domain.Transaction, error) {
	amount, err := decimal.NewFromString(st.Amount)
	if err != nil {
		return domain.Transaction{}, errors.Wrapf(err, "decode transaction %s amount", st.ID)
	}
	price, err := decimal.NewFromString(st.Price)
	if err != nil {
		return domain.Transaction{}, errors.Wrapf(err, "decode transaction %s price", st.ID)
	}
	totalValue, err := decimal.NewFromString(st.TotalValue)
	if err != nil {
		return domain.Transaction{}, errors.Wrapf(err, "decode transaction %s total value", st.ID)
	}
	profit := decimal.Zero
	if st.Profit != "" {
		profit, err = decimal.NewFromString(st.Profit)
		if err != nil {
			return domain.Transaction{}, errors.Wrapf(err, "decode transaction %s profit", st.ID)
		}
	}

	return domain.Transaction{
		ID:         st.ID,
		Kind:       domain.TransactionKind(st.Kind),
		Coin:       st.Coin,
		Symbol:     st.Symbol,
		Amount:     amount,
		Price:      price,
		TotalValue: totalValue,
		Profit:     profit,
		CreatedAt:  st.CreatedAt,
	}, nil
}
