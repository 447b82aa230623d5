package rest

import "execution-core/pkg/broker"

type orderResponse struct {
	OrderID    string  `json:"orderId"`
	State      string  `json:"state"`
	FillPrice  float64 `json:"fillPrice"`
	FilledSize float64 `json:"filledSize"`
}

type cancelResponse struct {
	OrderID   string `json:"orderId"`
	Cancelled bool   `json:"cancelled"`
}

type positionResponse struct {
	Symbol     string  `json:"symbol"`
	Size       float64 `json:"size"`
	StopLoss   float64 `json:"stopLoss"`
	TakeProfit float64 `json:"takeProfit"`
}

func mapState(s string) broker.OrderState {
	switch s {
	case "NEW":
		return broker.StateNew
	case "PENDING", "PARTIALLY_FILLED":
		return broker.StatePending
	case "FILLED":
		return broker.StateFilled
	case "CANCELLED", "CANCELED":
		return broker.StateCancelled
	case "REJECTED":
		return broker.StateRejected
	default:
		return broker.StateUnknown
	}
}
