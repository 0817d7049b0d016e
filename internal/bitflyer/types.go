package bitflyer

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side is an order or position direction. The zero value means flat.
type Side string

const (
	SideNone Side = ""
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the closing side for s, or SideNone when flat.
func (s Side) Opposite() Side {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	default:
		return SideNone
	}
}

func (s Side) String() string {
	if s == SideNone {
		return "NONE"
	}
	return string(s)
}

// Execution is one trade from the lightning_executions channel.
type Execution struct {
	ID       int64           `json:"id"`
	Side     Side            `json:"side"`
	Price    float64         `json:"price"`
	Size     decimal.Decimal `json:"size"`
	ExecDate string          `json:"exec_date"`
}

// Collateral is the account margin snapshot.
type Collateral struct {
	Collateral        float64 `json:"collateral"`
	OpenPositionPNL   float64 `json:"open_position_pnl"`
	RequireCollateral float64 `json:"require_collateral"`
	KeepRate          float64 `json:"keep_rate"`
}

// Position is one open position leg as reported by the exchange.
type Position struct {
	ProductCode string          `json:"product_code"`
	Side        Side            `json:"side"`
	Size        decimal.Decimal `json:"size"`
	Price       float64         `json:"price"`
}

// Ticker carries the top of book for one product.
type Ticker struct {
	ProductCode string  `json:"product_code"`
	Timestamp   string  `json:"timestamp"`
	BestBid     float64 `json:"best_bid"`
	BestAsk     float64 `json:"best_ask"`
	LTP         float64 `json:"ltp"`
}

// Mid returns the midpoint of the best bid and ask.
func (t Ticker) Mid() float64 {
	return (t.BestBid + t.BestAsk) / 2
}

// ChildOrderRequest places a single order.
type ChildOrderRequest struct {
	ProductCode    string          `json:"product_code"`
	ChildOrderType string          `json:"child_order_type"`
	Side           Side            `json:"side"`
	Price          float64         `json:"price,omitempty"`
	Size           decimal.Decimal `json:"size"`
	MinuteToExpire int             `json:"minute_to_expire,omitempty"`
	TimeInForce    string          `json:"time_in_force,omitempty"`
}

// ChildOrderResponse acknowledges an accepted child order.
type ChildOrderResponse struct {
	ChildOrderAcceptanceID string `json:"child_order_acceptance_id"`
}

// ParentOrderParameter is one leg of a parent (special) order.
type ParentOrderParameter struct {
	ProductCode   string          `json:"product_code"`
	ConditionType string          `json:"condition_type"`
	Side          Side            `json:"side"`
	Price         float64         `json:"price,omitempty"`
	TriggerPrice  float64         `json:"trigger_price,omitempty"`
	Size          decimal.Decimal `json:"size"`
}

// ParentOrderRequest places a composite order such as an IFDOCO bracket.
type ParentOrderRequest struct {
	OrderMethod    string                 `json:"order_method"`
	MinuteToExpire int                    `json:"minute_to_expire,omitempty"`
	TimeInForce    string                 `json:"time_in_force,omitempty"`
	Parameters     []ParentOrderParameter `json:"parameters"`
}

// ParentOrderResponse acknowledges an accepted parent order.
type ParentOrderResponse struct {
	ParentOrderAcceptanceID string `json:"parent_order_acceptance_id"`
}

const (
	OrderMethodIFDOCO = "IFDOCO"

	ConditionLimit = "LIMIT"
	ConditionStop  = "STOP"

	// StatusSizeOver is returned when the requested size exceeds what the
	// account can carry; the sizer repeats the same size once after it.
	StatusSizeOver = -205
)

// APIError is a non-2xx response body from the exchange.
type APIError struct {
	Status       int    `json:"status"`
	ErrorMessage string `json:"error_message"`
	Data         string `json:"data,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bitflyer: status=%d %s", e.Status, e.ErrorMessage)
}

// SizeOver reports whether the error is the oversized-order rejection.
func (e *APIError) SizeOver() bool { return e.Status == StatusSizeOver }

// ParseExecTime parses the exchange's execution timestamp format.
func ParseExecTime(s string) (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05.999999999", s)
}
