// Package web exposes the local HTTP UI: a JSON API over the market data
// client and the ledger, plus an SSE stream of portfolio valuations.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/chiptrader/internal/clients"
	"github.com/vadiminshakov/chiptrader/internal/domain"
	"github.com/vadiminshakov/chiptrader/internal/services/pricer"
	"go.uber.org/zap"
)

const (
	snapshotPollInterval = 2 * time.Second
	heartbeatInterval    = 30 * time.Second
)

type marketData interface {
	ListMarket(ctx context.Context, page, perPage int) ([]domain.Quote, error)
	GetDetails(ctx context.Context, coinID string) (domain.Quote, error)
	GetLivePrices(ctx context.Context, coinIDs []string) (map[string]domain.LivePrice, error)
	Degraded() bool
}

type tradeLedger interface {
	Buy(quote domain.Quote, amount, price decimal.Decimal) (decimal.Decimal, error)
	Sell(quote domain.Quote, amount, price decimal.Decimal) (decimal.Decimal, error)
	Balance() decimal.Decimal
	Transactions() []domain.Transaction
}

type portfolioValuator interface {
	Valuate(ctx context.Context) (domain.PortfolioValuation, error)
	Latest() (domain.PortfolioValuation, uint64)
}

type newsSource interface {
	Latest(ctx context.Context) []clients.NewsItem
}

type profileSource interface {
	Load() (*domain.Profile, error)
}

// Server exposes HTTP endpoints serving the HTML UI, the JSON API and an SSE
// stream.
type Server struct {
	Addr     string
	Market   marketData
	Ledger   tradeLedger
	Valuator portfolioValuator
	Pricer   pricer.Pricer
	News     newsSource
	Profile  profileSource
	Logger   *zap.Logger

	// PageSize is the market listing size used when the request does not
	// ask for one.
	PageSize int
}

// NewServer creates a new web server instance.
func NewServer(addr string, market marketData, ledger tradeLedger, valuator portfolioValuator,
	pr pricer.Pricer, news newsSource, profile profileSource, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Addr:     addr,
		Market:   market,
		Ledger:   ledger,
		Valuator: valuator,
		Pricer:   pr,
		News:     news,
		Profile:  profile,
		Logger:   logger,
		PageSize: 100,
	}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/market", s.handleMarket)
	mux.HandleFunc("/api/coins/", s.handleCoinDetails)
	mux.HandleFunc("/api/prices", s.handleLivePrices)
	mux.HandleFunc("/api/portfolio", s.handlePortfolio)
	mux.HandleFunc("/api/transactions", s.handleTransactions)
	mux.HandleFunc("/api/trade", s.handleTrade)
	mux.HandleFunc("/api/news", s.handleNews)
	mux.HandleFunc("/api/profile", s.handleProfile)
	mux.HandleFunc("/portfolio/stream", s.handlePortfolioStream)

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.Logger.Info("web UI listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", s.PageSize)

	quotes, err := s.Market.ListMarket(r.Context(), page, perPage)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, map[string]any{
		"coins": quotes,
		"stale": s.Market.Degraded(),
	})
}

func (s *Server) handleCoinDetails(w http.ResponseWriter, r *http.Request) {
	coinID := strings.TrimPrefix(r.URL.Path, "/api/coins/")
	if coinID == "" || strings.Contains(coinID, "/") {
		http.NotFound(w, r)
		return
	}

	quote, err := s.Market.GetDetails(r.Context(), coinID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, map[string]any{
		"coin":  quote,
		"stale": s.Market.Degraded(),
	})
}

func (s *Server) handleLivePrices(w http.ResponseWriter, r *http.Request) {
	idsParam := r.URL.Query().Get("ids")
	if idsParam == "" {
		s.writeJSON(w, map[string]any{"prices": map[string]domain.LivePrice{}})
		return
	}

	prices, err := s.Market.GetLivePrices(r.Context(), strings.Split(idsParam, ","))
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, map[string]any{
		"prices": prices,
		"stale":  s.Market.Degraded(),
	})
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	valuation, err := s.Valuator.Valuate(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, map[string]any{
		"chips":     s.Ledger.Balance(),
		"valuation": valuation,
	})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]any{"transactions": s.Ledger.Transactions()})
}

type tradeRequest struct {
	Side   string `json:"side"`
	CoinID string `json:"coin_id"`
	Amount string `json:"amount"`
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.Wrap(err, "decode trade request"))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.Wrap(err, "invalid amount"))
		return
	}

	quote, err := s.Market.GetDetails(r.Context(), req.CoinID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusBadGateway, err)
		return
	}

	price, err := s.Pricer.GetPrice(r.Context(), quote)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}

	switch req.Side {
	case "buy":
		balance, err := s.Ledger.Buy(quote, amount, price)
		if err != nil {
			s.writeTradeError(w, err)
			return
		}
		s.writeJSON(w, map[string]any{
			"chips": balance,
			"price": price,
		})
	case "sell":
		profit, err := s.Ledger.Sell(quote, amount, price)
		if err != nil {
			s.writeTradeError(w, err)
			return
		}
		s.writeJSON(w, map[string]any{
			"chips":  s.Ledger.Balance(),
			"price":  price,
			"profit": profit,
		})
	default:
		s.writeError(w, http.StatusBadRequest, errors.Errorf("unknown trade side: %q", req.Side))
	}
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	if s.News == nil {
		s.writeJSON(w, map[string]any{"news": []clients.NewsItem{}})
		return
	}
	s.writeJSON(w, map[string]any{"news": s.News.Latest(r.Context())})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.Profile.Load()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if p == nil {
		s.writeError(w, http.StatusNotFound, errors.New("no profile, run with --setup"))
		return
	}
	p.PasscodeHash = ""
	s.writeJSON(w, map[string]any{"profile": p})
}

func (s *Server) handlePortfolioStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// comment heartbeat so proxies keep the connection
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(snapshotPollInterval)
	defer pollTicker.Stop()

	lastSeq := uint64(0)
	sendSnapshot := func() error {
		snapshot, seq := s.Valuator.Latest()
		if seq == lastSeq {
			return nil
		}
		payload, err := json.Marshal(snapshot)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "event: valuation\n")
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
		lastSeq = seq
		return nil
	}

	if err := sendSnapshot(); err != nil {
		s.Logger.Warn("portfolio stream initial send failed", zap.Error(err))
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendSnapshot(); err != nil {
				s.Logger.Warn("portfolio stream send failed", zap.Error(err))
			}
		}
	}
}

// writeTradeError maps ledger precondition failures to 422 so the UI can
// show them inline; anything else is a server-side problem.
func (s *Server) writeTradeError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrInsufficientBalance) || errors.Is(err, domain.ErrInsufficientHolding) {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.writeError(w, http.StatusInternalServerError, err)
}

func (s *Server) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.Logger.Warn("response encoding failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
