package broker

import "context"

// Adapter abstracts a trading venue. Implementations must return structured
// errors rather than panicking; the execution engine treats any error from
// an adapter call as a failure of the current attempt.
//
// GetOrderStatus must always issue a fresh query, never a cached answer.
type Adapter interface {
	SubmitOrder(ctx context.Context, req OrderRequest) (SubmitResult, error)
	CancelOrder(ctx context.Context, orderID string) (bool, error)
	GetOrderStatus(ctx context.Context, orderID string) (OrderStatus, error)
	GetPositions(ctx context.Context) ([]Position, error)
}
