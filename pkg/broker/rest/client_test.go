package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"execution-core/pkg/broker"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := New(Config{
		BaseURL:   srv.URL,
		APIKey:    "k",
		APISecret: "s",
	})
	return client, srv
}

func TestSubmitOrderSignsAndDecodes(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method=%s, expected POST", r.Method)
		}
		if r.Header.Get("X-API-KEY") != "k" {
			t.Errorf("missing api key header")
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("signature") == "" {
			t.Errorf("request not signed")
		}
		if r.PostForm.Get("symbol") != "BTCUSDT" {
			t.Errorf("symbol=%q", r.PostForm.Get("symbol"))
		}
		_ = json.NewEncoder(w).Encode(orderResponse{OrderID: "X-1", State: "NEW"})
	})

	res, err := client.SubmitOrder(context.Background(), broker.OrderRequest{
		Symbol: "BTCUSDT", Side: broker.SideBuy, Type: broker.OrderTypeMarket, Qty: 1.5, ClientID: "c-1",
	})
	if err != nil {
		t.Fatalf("SubmitOrder error: %v", err)
	}
	if res.OrderID != "X-1" || res.State != broker.StateNew {
		t.Fatalf("result=%+v", res)
	}
}

func TestSubmitOrderSurfacesAPIError(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"INVALID_SYMBOL","message":"unknown symbol"}`))
	})

	_, err := client.SubmitOrder(context.Background(), broker.OrderRequest{
		Symbol: "NOPE", Side: broker.SideBuy, Type: broker.OrderTypeMarket, Qty: 1,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := err.(*apiError)
	if !ok {
		t.Fatalf("error type %T, expected *apiError", err)
	}
	if apiErr.Code != "INVALID_SYMBOL" {
		t.Fatalf("code=%q", apiErr.Code)
	}
}

func TestCancelOrderConflictMeansNotCancelled(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"ALREADY_FILLED","message":"order already filled"}`))
	})

	ok, err := client.CancelOrder(context.Background(), "X-1")
	if err != nil {
		t.Fatalf("CancelOrder error: %v, conflict should not be an error", err)
	}
	if ok {
		t.Fatal("cancel reported success on an already-filled order")
	}
}

func TestGetPositions(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]positionResponse{
			{Symbol: "BTCUSDT", Size: 1.5, StopLoss: 148.96, TakeProfit: 156.56},
		})
	})

	positions, err := client.GetPositions(context.Background())
	if err != nil {
		t.Fatalf("GetPositions error: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("positions=%d, expected 1", len(positions))
	}
	if positions[0].StopLoss != 148.96 {
		t.Fatalf("StopLoss=%v", positions[0].StopLoss)
	}
}

func TestMapState(t *testing.T) {
	tests := []struct {
		in   string
		want broker.OrderState
	}{
		{"NEW", broker.StateNew},
		{"PARTIALLY_FILLED", broker.StatePending},
		{"FILLED", broker.StateFilled},
		{"CANCELED", broker.StateCancelled},
		{"REJECTED", broker.StateRejected},
		{"whatever", broker.StateUnknown},
	}
	for _, tt := range tests {
		if got := mapState(tt.in); got != tt.want {
			t.Errorf("mapState(%q)=%s, expected %s", tt.in, got, tt.want)
		}
	}
}
