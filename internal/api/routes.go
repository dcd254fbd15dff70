package api

import (
	"net/http"
)

func (s *Server) routes() {
	r := s.router
	r.Use(s.requestID, s.recoverer, s.tracing, s.instrument)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	// Market data
	r.HandleFunc("/symbol_info/{symbol}", s.handleSymbolInfo).Methods(http.MethodGet)
	r.HandleFunc("/symbol_info_tick/{symbol}", s.handleSymbolTick).Methods(http.MethodGet)
	r.HandleFunc("/fetch_data_pos", s.handleFetchDataPos).Methods(http.MethodGet)
	r.HandleFunc("/fetch_data_range", s.handleFetchDataRange).Methods(http.MethodGet)

	// Positions
	r.HandleFunc("/positions_get", s.handlePositions).Methods(http.MethodGet)
	r.HandleFunc("/get_positions", s.handlePositions).Methods(http.MethodGet)
	r.HandleFunc("/positions_total", s.handlePositionsTotal).Methods(http.MethodGet)

	// Orders
	r.HandleFunc("/close_all_positions", s.handleCloseAll).Methods(http.MethodPost)
	r.HandleFunc("/close_position", s.handleClosePosition).Methods(http.MethodPost)
	r.HandleFunc("/send_market_order", s.handleSendMarketOrder).Methods(http.MethodPost)
	r.HandleFunc("/order_send", s.handleOrderSend).Methods(http.MethodPost)
	r.HandleFunc("/modify_sl_tp", s.handleModifySLTP).Methods(http.MethodPost)

	// History
	r.HandleFunc("/get_deal_from_ticket", s.handleDealFromTicket).Methods(http.MethodGet)
	r.HandleFunc("/get_order_from_ticket", s.handleOrderFromTicket).Methods(http.MethodGet)
	r.HandleFunc("/history_deals_get", s.handleHistoryDeals).Methods(http.MethodGet)
	r.HandleFunc("/history_orders_get", s.handleHistoryOrders).Methods(http.MethodGet)
	r.HandleFunc("/last_error", s.handleLastError).Methods(http.MethodGet)
	r.HandleFunc("/last_error_str", s.handleLastErrorStr).Methods(http.MethodGet)
}
