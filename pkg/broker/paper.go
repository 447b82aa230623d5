package broker

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PaperConfig tunes the simulated venue.
type PaperConfig struct {
	FillLatency time.Duration      // time from submission to fill
	SlippageBps float64            // basis points of adverse slippage on fills
	Prices      map[string]float64 // last price per symbol; orders for unknown symbols are rejected
}

// Paper is an in-process simulated broker used when no live venue is
// configured, and by tests. Orders fill at the configured price plus
// simulated slippage after FillLatency elapses.
type Paper struct {
	cfg PaperConfig
	rng *rand.Rand

	mu         sync.RWMutex
	orders     map[string]*paperOrder
	protection map[string]protection // broker-side SL/TP per symbol
}

type paperOrder struct {
	req         OrderRequest
	submittedAt time.Time
	fillPrice   float64
	cancelled   bool
}

type protection struct {
	sl, tp float64
}

// NewPaper creates a simulated broker.
func NewPaper(cfg PaperConfig) *Paper {
	if cfg.FillLatency <= 0 {
		cfg.FillLatency = 200 * time.Millisecond
	}
	return &Paper{
		cfg:        cfg,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		orders:     make(map[string]*paperOrder),
		protection: make(map[string]protection),
	}
}

// SetPrice updates the simulated last price for a symbol.
func (p *Paper) SetPrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cfg.Prices == nil {
		p.cfg.Prices = make(map[string]float64)
	}
	p.cfg.Prices[symbol] = price
}

// SetProtection records broker-side stop-loss/take-profit levels reported
// with positions, simulating a venue that carries bracket protection.
func (p *Paper) SetProtection(symbol string, sl, tp float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.protection[symbol] = protection{sl: sl, tp: tp}
}

func (p *Paper) SubmitOrder(ctx context.Context, req OrderRequest) (SubmitResult, error) {
	if err := ctx.Err(); err != nil {
		return SubmitResult{}, err
	}
	if req.Symbol == "" || req.Qty <= 0 {
		return SubmitResult{}, errors.New("paper: invalid order request")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	price, ok := p.cfg.Prices[req.Symbol]
	if !ok || price <= 0 {
		return SubmitResult{}, fmt.Errorf("paper: unknown symbol %q", req.Symbol)
	}

	fill := price
	if p.cfg.SlippageBps > 0 {
		noise := p.rng.Float64() * p.cfg.SlippageBps / 10000.0
		if strings.EqualFold(string(req.Side), string(SideBuy)) {
			fill = price * (1 + noise)
		} else {
			fill = price * (1 - noise)
		}
	}

	id := req.ClientID
	if id == "" {
		id = uuid.NewString()
	}
	p.orders[id] = &paperOrder{
		req:         req,
		submittedAt: time.Now(),
		fillPrice:   fill,
	}

	return SubmitResult{OrderID: id, State: StateNew}, nil
}

func (p *Paper) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	o, ok := p.orders[orderID]
	if !ok {
		return false, fmt.Errorf("paper: unknown order %q", orderID)
	}
	if o.cancelled || time.Since(o.submittedAt) >= p.cfg.FillLatency {
		// Already filled or already cancelled: cancel fails.
		return false, nil
	}
	o.cancelled = true
	return true, nil
}

func (p *Paper) GetOrderStatus(ctx context.Context, orderID string) (OrderStatus, error) {
	if err := ctx.Err(); err != nil {
		return OrderStatus{}, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	o, ok := p.orders[orderID]
	if !ok {
		return OrderStatus{}, fmt.Errorf("paper: unknown order %q", orderID)
	}
	if o.cancelled {
		return OrderStatus{State: StateCancelled}, nil
	}
	if time.Since(o.submittedAt) < p.cfg.FillLatency {
		return OrderStatus{State: StatePending}, nil
	}
	return OrderStatus{
		State:      StateFilled,
		FillPrice:  o.fillPrice,
		FilledSize: o.req.Qty,
	}, nil
}

func (p *Paper) GetPositions(ctx context.Context) ([]Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	net := make(map[string]float64)
	for _, o := range p.orders {
		if o.cancelled || time.Since(o.submittedAt) < p.cfg.FillLatency {
			continue
		}
		qty := o.req.Qty
		if strings.EqualFold(string(o.req.Side), string(SideSell)) {
			qty = -qty
		}
		net[o.req.Symbol] += qty
	}

	positions := make([]Position, 0, len(net))
	for symbol, size := range net {
		if size == 0 {
			continue
		}
		pos := Position{Symbol: symbol, Size: size}
		if prot, ok := p.protection[symbol]; ok {
			pos.StopLoss = prot.sl
			pos.TakeProfit = prot.tp
		}
		positions = append(positions, pos)
	}
	return positions, nil
}
