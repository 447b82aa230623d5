// Package broker defines the only network-facing boundary of the execution
// core. Every other component is pure in-process logic; all I/O funnels
// through the Adapter interface.
package broker

// Side denotes order side.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType denotes basic order types.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OrderState normalizes broker order status into a small set.
type OrderState string

const (
	StateNew       OrderState = "NEW"
	StatePending   OrderState = "PENDING"
	StateFilled    OrderState = "FILLED"
	StateCancelled OrderState = "CANCELLED"
	StateRejected  OrderState = "REJECTED"
	StateUnknown   OrderState = "UNKNOWN"
)

// OrderRequest captures an order intent to be sent to the broker.
type OrderRequest struct {
	Symbol   string
	Side     Side
	Type     OrderType
	Qty      float64
	ClientID string // client order id, always set by the engine
}

// SubmitResult returns the broker ack for a submission.
type SubmitResult struct {
	OrderID string
	State   OrderState
}

// OrderStatus is a fresh point-in-time view of an order. FillPrice and
// FilledSize are meaningful only when State is FILLED.
type OrderStatus struct {
	State      OrderState
	FillPrice  float64
	FilledSize float64
}

// Position is a broker-observed open position. StopLoss/TakeProfit of zero
// mean the broker reports no protective level for the position.
type Position struct {
	Symbol     string
	Size       float64
	StopLoss   float64
	TakeProfit float64
}
