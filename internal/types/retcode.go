package types

import "fmt"

// ReturnCode is the terminal's trade server return code (TRADE_RETCODE_*).
type ReturnCode int

const (
	RetcodeNone              ReturnCode = 0
	RetcodeRequote           ReturnCode = 10004
	RetcodeReject            ReturnCode = 10006
	RetcodeCancel            ReturnCode = 10007
	RetcodePlaced            ReturnCode = 10008
	RetcodeDone              ReturnCode = 10009
	RetcodeDonePartial       ReturnCode = 10010
	RetcodeError             ReturnCode = 10011
	RetcodeTimeout           ReturnCode = 10012
	RetcodeInvalid           ReturnCode = 10013
	RetcodeInvalidVolume     ReturnCode = 10014
	RetcodeInvalidPrice      ReturnCode = 10015
	RetcodeInvalidStops      ReturnCode = 10016
	RetcodeTradeDisabled     ReturnCode = 10017
	RetcodeMarketClosed      ReturnCode = 10018
	RetcodeNoMoney           ReturnCode = 10019
	RetcodePriceChanged      ReturnCode = 10020
	RetcodePriceOff          ReturnCode = 10021
	RetcodeInvalidExpiration ReturnCode = 10022
	RetcodeOrderChanged      ReturnCode = 10023
	RetcodeTooManyRequests   ReturnCode = 10024
	RetcodeNoChanges         ReturnCode = 10025
	RetcodeServerDisablesAT  ReturnCode = 10026
	RetcodeClientDisablesAT  ReturnCode = 10027
	RetcodeLocked            ReturnCode = 10028
	RetcodeFrozen            ReturnCode = 10029
	RetcodeInvalidFill       ReturnCode = 10030
	RetcodeConnection        ReturnCode = 10031
	RetcodeOnlyReal          ReturnCode = 10032
	RetcodeLimitOrders       ReturnCode = 10033
	RetcodeLimitVolume       ReturnCode = 10034
	RetcodeInvalidOrder      ReturnCode = 10035
	RetcodePositionClosed    ReturnCode = 10036
)

var retcodeInfo = map[ReturnCode][2]string{
	RetcodeRequote:           {"TRADE_RETCODE_REQUOTE", "Requote"},
	RetcodeReject:            {"TRADE_RETCODE_REJECT", "Request rejected"},
	RetcodeCancel:            {"TRADE_RETCODE_CANCEL", "Request canceled by trader"},
	RetcodePlaced:            {"TRADE_RETCODE_PLACED", "Order placed"},
	RetcodeDone:              {"TRADE_RETCODE_DONE", "Request completed"},
	RetcodeDonePartial:       {"TRADE_RETCODE_DONE_PARTIAL", "Only part of the request was completed"},
	RetcodeError:             {"TRADE_RETCODE_ERROR", "Request processing error"},
	RetcodeTimeout:           {"TRADE_RETCODE_TIMEOUT", "Request canceled by timeout"},
	RetcodeInvalid:           {"TRADE_RETCODE_INVALID", "Invalid request"},
	RetcodeInvalidVolume:     {"TRADE_RETCODE_INVALID_VOLUME", "Invalid volume in the request"},
	RetcodeInvalidPrice:      {"TRADE_RETCODE_INVALID_PRICE", "Invalid price in the request"},
	RetcodeInvalidStops:      {"TRADE_RETCODE_INVALID_STOPS", "Invalid stops in the request"},
	RetcodeTradeDisabled:     {"TRADE_RETCODE_TRADE_DISABLED", "Trade is disabled"},
	RetcodeMarketClosed:      {"TRADE_RETCODE_MARKET_CLOSED", "Market is closed"},
	RetcodeNoMoney:           {"TRADE_RETCODE_NO_MONEY", "There is not enough money to complete the request"},
	RetcodePriceChanged:      {"TRADE_RETCODE_PRICE_CHANGED", "Prices changed"},
	RetcodePriceOff:          {"TRADE_RETCODE_PRICE_OFF", "There are no quotes to process the request"},
	RetcodeInvalidExpiration: {"TRADE_RETCODE_INVALID_EXPIRATION", "Invalid order expiration date in the request"},
	RetcodeOrderChanged:      {"TRADE_RETCODE_ORDER_CHANGED", "Order state changed"},
	RetcodeTooManyRequests:   {"TRADE_RETCODE_TOO_MANY_REQUESTS", "Too frequent requests"},
	RetcodeNoChanges:         {"TRADE_RETCODE_NO_CHANGES", "No changes in request"},
	RetcodeServerDisablesAT:  {"TRADE_RETCODE_SERVER_DISABLES_AT", "Autotrading disabled by server"},
	RetcodeClientDisablesAT:  {"TRADE_RETCODE_CLIENT_DISABLES_AT", "Autotrading disabled by client terminal"},
	RetcodeLocked:            {"TRADE_RETCODE_LOCKED", "Request locked for processing"},
	RetcodeFrozen:            {"TRADE_RETCODE_FROZEN", "Order or position frozen"},
	RetcodeInvalidFill:       {"TRADE_RETCODE_INVALID_FILL", "Invalid order filling type"},
	RetcodeConnection:        {"TRADE_RETCODE_CONNECTION", "No connection with the trade server"},
	RetcodeOnlyReal:          {"TRADE_RETCODE_ONLY_REAL", "Operation is allowed only for live accounts"},
	RetcodeLimitOrders:       {"TRADE_RETCODE_LIMIT_ORDERS", "The number of pending orders has reached the limit"},
	RetcodeLimitVolume:       {"TRADE_RETCODE_LIMIT_VOLUME", "The volume of orders and positions has reached the limit"},
	RetcodeInvalidOrder:      {"TRADE_RETCODE_INVALID_ORDER", "Incorrect or prohibited order type"},
	RetcodePositionClosed:    {"TRADE_RETCODE_POSITION_CLOSED", "Position with the specified identifier has already been closed"},
}

func (c ReturnCode) String() string {
	if info, ok := retcodeInfo[c]; ok {
		return info[0]
	}
	return fmt.Sprintf("TRADE_RETCODE_%d", int(c))
}

// Description returns a human readable description of the code.
func (c ReturnCode) Description() string {
	if info, ok := retcodeInfo[c]; ok {
		return info[1]
	}
	return "Unknown"
}

// IsSuccess reports whether the code means the request was accepted.
func (c ReturnCode) IsSuccess() bool {
	switch c {
	case RetcodeDone, RetcodeDonePartial, RetcodePlaced:
		return true
	default:
		return false
	}
}
