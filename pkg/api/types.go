package api

import "github.com/uhyunpark/orderwatch/pkg/store"

// API response types for REST endpoints and WebSocket messages

// OrdersResponse lists the current order mirror.
type OrdersResponse struct {
	Total   int                  `json:"total"`
	Records []*store.OrderEntity `json:"records"`
}

// ErrorResponse is the generic failure body.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// RejectResponse identifies which submitted orders were refused and why.
type RejectResponse struct {
	Error     string   `json:"error"`
	Invalid   []string `json:"invalidOrders,omitempty"`
	Cancelled []string `json:"cancelledOrders,omitempty"`
	Expired   []string `json:"expiredOrders,omitempty"`
	Filled    []string `json:"filledOrders,omitempty"`
}

// OrderUpdate is broadcast on the websocket orders channel whenever the
// engine mutates the store.
type OrderUpdate struct {
	Channel string               `json:"channel"`
	Action  string               `json:"action"` // "saved" or "removed"
	Orders  []*store.OrderEntity `json:"orders,omitempty"`
	Hashes  []string             `json:"hashes,omitempty"`
}
