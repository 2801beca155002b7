package models

import (
	"time"
)

// Tracking is the customer-facing mirror of an order, keyed by tracking id
type Tracking struct {
	TrackingID string            `json:"-"`
	OrderDocID string            `json:"orderDocId"`
	Folio      string            `json:"folio"`
	Status     Status            `json:"status"`
	Quantity   int               `json:"quantity"`
	Total      float64           `json:"total"`
	Method     FulfillmentMethod `json:"method"`
	ReadyBy    *string           `json:"readyBy"`
	CreatedAt  *time.Time        `json:"createdAt,omitempty"`
	UpdatedAt  *time.Time        `json:"updatedAt,omitempty"`
}

// NewTrackingFromOrder builds the initial tracking record for an order that
// has just been written with the given status
func NewTrackingFromOrder(order *Order, status Status) *Tracking {
	method := order.Method
	if method == "" {
		method = MethodPickup
	}

	var readyBy *string
	if order.ReadyBy != "" {
		r := order.ReadyBy
		readyBy = &r
	}

	return &Tracking{
		TrackingID: order.TrackingID,
		OrderDocID: order.DocID,
		Folio:      order.Folio,
		Status:     status,
		Quantity:   order.Quantity,
		Total:      order.Total,
		Method:     method,
		ReadyBy:    readyBy,
	}
}
