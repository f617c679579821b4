package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/date"
	"github.com/etnz/costbasis/store"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// curveRequest is a posted portfolio plus the curve parameters. History maps
// codes to daily closes by date.
type curveRequest struct {
	costbasis.RawInput
	Days    int                           `json:"days"`
	AsOf    date.Date                     `json:"asOf"`
	Period  string                        `json:"period"`
	History map[string]map[string]float64 `json:"history"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var raw costbasis.RawInput
	if !s.decode(w, r, &raw) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.engine.Compute(s.engine.NormalizeInput(raw)))
}

func (s *Server) handleCurve(w http.ResponseWriter, r *http.Request) {
	var req curveRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := checkDays(req.Days); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	period, err := date.ParsePeriod(req.Period)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	history := make(costbasis.PriceHistory)
	for code, closes := range req.History {
		for on, v := range closes {
			day, err := date.Parse(on)
			if err != nil {
				s.writeError(w, http.StatusBadRequest, "history of "+code+": "+err.Error())
				return
			}
			history.Set(code, day, v)
		}
	}
	in := s.engine.NormalizeInput(req.RawInput)
	s.writeJSON(w, http.StatusOK, s.engine.EquityCurve(costbasis.CurveInput{
		Transactions: in.Transactions,
		Holdings:     in.Holdings,
		History:      history,
		CashBalance:  in.CashBalance,
		Days:         req.Days,
		AsOf:         req.AsOf,
		Period:       period,
	}))
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var raw costbasis.RawInput
	if !s.decode(w, r, &raw) {
		return
	}
	txs := s.engine.NormalizeTransactions(raw.Transactions)
	skipped := s.engine.Replay(costbasis.SortChronologically(txs)).Skipped()
	if skipped == nil {
		skipped = []costbasis.SkippedSale{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"valid":   len(skipped) == 0,
		"skipped": skipped,
	})
}

func (s *Server) handlePortfolios(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.Portfolios(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("cannot list portfolios")
		s.writeError(w, http.StatusInternalServerError, "cannot list portfolios")
		return
	}
	type entry struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	out := make([]entry, 0, len(list))
	for _, p := range list {
		out = append(out, entry{p.ID, p.Name})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// load reads a stored portfolio, answering the request on failure.
func (s *Server) load(w http.ResponseWriter, r *http.Request) (costbasis.Input, bool) {
	id, ok := s.portfolioID(w, r)
	if !ok {
		return costbasis.Input{}, false
	}
	raw, err := s.store.Load(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return costbasis.Input{}, false
	}
	if err != nil {
		s.log.Error().Err(err).Int64("portfolio", id).Msg("cannot load portfolio")
		s.writeError(w, http.StatusInternalServerError, "cannot load portfolio")
		return costbasis.Input{}, false
	}
	if raw.Prices == nil {
		raw.Prices = make(costbasis.PriceMap)
	}
	for key, values := range r.URL.Query() {
		code, found := strings.CutPrefix(key, "price.")
		if !found || len(values) == 0 {
			continue
		}
		d, err := decimal.NewFromString(values[len(values)-1])
		if err != nil || !d.IsPositive() {
			s.writeError(w, http.StatusBadRequest, "invalid price for "+code)
			return costbasis.Input{}, false
		}
		raw.Prices.Set(code, costbasis.M(d, ""))
	}
	return s.engine.NormalizeInput(raw), true
}

func (s *Server) handlePortfolioMetrics(w http.ResponseWriter, r *http.Request) {
	in, ok := s.load(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.engine.Compute(in))
}

func (s *Server) handlePortfolioCurve(w http.ResponseWriter, r *http.Request) {
	in, ok := s.load(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	ci := costbasis.CurveInput{
		Transactions: in.Transactions,
		Holdings:     in.Holdings,
		CashBalance:  in.CashBalance,
	}
	var err error
	if v := q.Get("days"); v != "" {
		if ci.Days, err = strconv.Atoi(v); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid days")
			return
		}
		if err := checkDays(ci.Days); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if v := q.Get("on"); v != "" {
		if ci.AsOf, err = date.Parse(v); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if ci.Period, err = date.ParsePeriod(q.Get("period")); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, s.engine.EquityCurve(ci))
}

// checkDays accepts zero for the default window.
func checkDays(days int) error {
	if days < 0 || days > costbasis.MaxCurveDays {
		return fmt.Errorf("days must be between 0 and %d", costbasis.MaxCurveDays)
	}
	return nil
}

func (s *Server) portfolioID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid portfolio id")
		return 0, false
	}
	return id, true
}

func (s *Server) storeError(w http.ResponseWriter, err error, id int64) {
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.log.Error().Err(err).Int64("portfolio", id).Msg("store error")
	s.writeError(w, http.StatusInternalServerError, "cannot update portfolio")
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := s.portfolioID(w, r)
	if !ok {
		return
	}
	var tx costbasis.RawTransaction
	if !s.decode(w, r, &tx) {
		return
	}
	if _, err := costbasis.ParseKind(tx.Kind); err != nil || tx.Code == "" {
		s.writeError(w, http.StatusUnprocessableEntity, "a transaction needs an instrument code and a BUY or SELL kind")
		return
	}
	if err := s.store.AddTransaction(r.Context(), id, tx); err != nil {
		s.storeError(w, err, id)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleUpsertHolding(w http.ResponseWriter, r *http.Request) {
	id, ok := s.portfolioID(w, r)
	if !ok {
		return
	}
	var h costbasis.RawHolding
	if !s.decode(w, r, &h) {
		return
	}
	if h.Code == "" {
		s.writeError(w, http.StatusUnprocessableEntity, "a holding needs an instrument code")
		return
	}
	if err := s.store.UpsertHolding(r.Context(), id, h); err != nil {
		s.storeError(w, err, id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
