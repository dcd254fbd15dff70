package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/tathienbao/terminal-gateway/internal/gateway"
	"github.com/tathienbao/terminal-gateway/internal/types"
)

type symbolInfoResponse struct {
	Symbol string          `json:"symbol"`
	Bid    decimal.Decimal `json:"bid"`
	Ask    decimal.Decimal `json:"ask"`
	Spread int             `json:"spread"`
	Volume int64           `json:"volume"`
}

type tickResponse struct {
	Symbol string          `json:"symbol"`
	Bid    decimal.Decimal `json:"bid"`
	Ask    decimal.Decimal `json:"ask"`
	Last   decimal.Decimal `json:"last"`
	Volume int64           `json:"volume"`
	Time   time.Time       `json:"time"`
}

type positionsTotalResponse struct {
	TotalPositions int `json:"total_positions"`
}

// closeAllResponse is returned whenever enumeration succeeded, including
// when some closes failed.
type closeAllResponse struct {
	Success        bool                  `json:"success"`
	PartialFailure bool                  `json:"partial_failure"`
	Succeeded      int                   `json:"succeeded"`
	Failed         int                   `json:"failed"`
	ClosedOrders   []gateway.CloseResult `json:"closed_orders"`
}

type orderResponse struct {
	Success bool               `json:"success"`
	Order   *types.OrderResult `json:"order"`
}

type modifyResponse struct {
	Success bool               `json:"success"`
	Result  *types.OrderResult `json:"result"`
}

type lastErrorResponse struct {
	Code        int    `json:"last_error_code"`
	Description string `json:"description"`
}

type lastErrorStrResponse struct {
	LastError string `json:"last_error_str"`
}

func (s *Server) handleSymbolInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.SymbolInfo(r.Context(), mux.Vars(r)["symbol"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, symbolInfoResponse{
		Symbol: info.Name,
		Bid:    info.Bid,
		Ask:    info.Ask,
		Spread: info.Spread,
		Volume: info.Volume,
	})
}

func (s *Server) handleSymbolTick(w http.ResponseWriter, r *http.Request) {
	tick, err := s.svc.SymbolTick(r.Context(), mux.Vars(r)["symbol"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tickResponse{
		Symbol: tick.Symbol,
		Bid:    tick.Bid,
		Ask:    tick.Ask,
		Last:   tick.Last,
		Volume: tick.Volume,
		Time:   tick.Time,
	})
}

func (s *Server) handleFetchDataPos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := fetchPosQuery{
		Symbol:    q.Get("symbol"),
		Timeframe: q.Get("timeframe"),
		Bars:      q.Get("bars"),
	}
	if err := s.check(&params); err != nil {
		s.writeError(w, r, err)
		return
	}
	bars, err := strconv.Atoi(params.Bars)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: bars must be an integer, got %q", types.ErrInvalidArgument, params.Bars))
		return
	}

	out, err := s.svc.RatesFromPos(r.Context(), params.Symbol, params.Timeframe, bars)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFetchDataRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := fetchRangeQuery{
		Symbol:    q.Get("symbol"),
		Timeframe: q.Get("timeframe"),
		FromDate:  q.Get("from_date"),
		ToDate:    q.Get("to_date"),
		Timezone:  q.Get("timezone"),
	}
	if err := s.check(&params); err != nil {
		s.writeError(w, r, err)
		return
	}

	out, err := s.svc.RatesRange(r.Context(), gateway.RatesRangeQuery{
		Symbol:    params.Symbol,
		Timeframe: params.Timeframe,
		From:      params.FromDate,
		To:        params.ToDate,
		Timezone:  params.Timezone,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	magic, err := queryInt64(r.URL.Query(), "magic")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	positions, err := s.svc.ListPositions(r.Context(), magic)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if positions == nil {
		positions = []types.Position{}
	}
	writeJSON(w, http.StatusOK, positions)
}

func (s *Server) handlePositionsTotal(w http.ResponseWriter, r *http.Request) {
	total, err := s.svc.PositionsTotal(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, positionsTotalResponse{TotalPositions: total})
}

func (s *Server) handleCloseAll(w http.ResponseWriter, r *http.Request) {
	var req closeAllRequest
	if err := s.decodeBody(w, r, &req, true); err != nil {
		s.writeError(w, r, err)
		return
	}

	outcome, err := s.svc.CloseAll(r.Context(), req.toParams())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, closeAllResponse{
		Success:        !outcome.HasFailures() || outcome.Succeeded() > 0,
		PartialFailure: outcome.PartialFailure(),
		Succeeded:      outcome.Succeeded(),
		Failed:         outcome.Failed(),
		ClosedOrders:   outcome.Results,
	})
}

func (s *Server) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	var req closePositionRequest
	if err := s.decodeBody(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.svc.ClosePosition(r.Context(), req.toParams())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Success: true, Order: result})
}

func (s *Server) handleSendMarketOrder(w http.ResponseWriter, r *http.Request) {
	var req marketOrderRequest
	if err := s.decodeBody(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.svc.SendMarketOrder(r.Context(), req.toParams())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Success: true, Order: result})
}

func (s *Server) handleOrderSend(w http.ResponseWriter, r *http.Request) {
	var req types.TradeRequest
	if err := s.decodeBody(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.svc.SendOrder(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Success: true, Order: result})
}

func (s *Server) handleModifySLTP(w http.ResponseWriter, r *http.Request) {
	var req modifySLTPRequest
	if err := s.decodeBody(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.svc.ModifySLTP(r.Context(), *req.Ticket, *req.StopLoss, *req.TakeProfit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, modifyResponse{Success: true, Result: result})
}

func (s *Server) handleDealFromTicket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := ticketQuery{Ticket: q.Get("ticket")}
	if err := s.check(&params); err != nil {
		s.writeError(w, r, err)
		return
	}
	ticket, err := requireInt64(q, "ticket")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	summary, err := s.svc.DealFromTicket(r.Context(), gateway.DealQuery{
		Ticket:   ticket,
		Timezone: q.Get("timezone"),
		From:     nonEmpty(q.Get("from_date")),
		To:       nonEmpty(q.Get("to_date")),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleOrderFromTicket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := ticketQuery{Ticket: q.Get("ticket")}
	if err := s.check(&params); err != nil {
		s.writeError(w, r, err)
		return
	}
	ticket, err := requireInt64(q, "ticket")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	order, err := s.svc.OrderFromTicket(r.Context(), ticket)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleHistoryDeals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := queryInt64(q, "from_timestamp")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	to, err := queryInt64(q, "to_timestamp")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	position, err := queryInt64(q, "position")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	deals, err := s.svc.HistoryDeals(r.Context(), from.Unwrap(), to.Unwrap(), position)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deals)
}

func (s *Server) handleHistoryOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := ticketQuery{Ticket: q.Get("ticket")}
	if err := s.check(&params); err != nil {
		s.writeError(w, r, err)
		return
	}
	ticket, err := requireInt64(q, "ticket")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	orders, err := s.svc.HistoryOrders(r.Context(), ticket)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleLastError(w http.ResponseWriter, r *http.Request) {
	lastErr, err := s.svc.LastError(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lastErrorResponse{Code: lastErr.Code, Description: lastErr.Description})
}

func (s *Server) handleLastErrorStr(w http.ResponseWriter, r *http.Request) {
	lastErr, err := s.svc.LastError(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lastErrorStrResponse{LastError: lastErr.String()})
}

func nonEmpty(v string) optional.Option[string] {
	if v == "" {
		return optional.None[string]()
	}
	return optional.Some(v)
}
