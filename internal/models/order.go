package models

import (
	"time"
)

// Status represents the fulfillment status of an order
type Status string

const (
	StatusNew       Status = "new"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// progression is the linear fulfillment order; cancelled sits outside it
var progression = []Status{
	StatusNew,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
	StatusDelivered,
}

// Progression returns a copy of the linear status order
func Progression() []Status {
	out := make([]Status, len(progression))
	copy(out, progression)
	return out
}

// AllStatuses lists every known status, cancelled last
func AllStatuses() []Status {
	return append(Progression(), StatusCancelled)
}

// ParseStatus converts a raw string into a known Status
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	return st, st.Valid()
}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	if s == StatusCancelled {
		return true
	}
	return s.position() >= 0
}

// OrDefault treats an absent status as new
func (s Status) OrDefault() Status {
	if s == "" {
		return StatusNew
	}
	return s
}

// IsTerminal reports whether no further advance is possible
func (s Status) IsTerminal() bool {
	s = s.OrDefault()
	return s == StatusCancelled || s == StatusDelivered
}

// Next returns the successor in the linear progression.
// ok is false for cancelled, delivered and unknown statuses.
func (s Status) Next() (Status, bool) {
	i := s.OrDefault().position()
	if i < 0 || i == len(progression)-1 {
		return "", false
	}
	return progression[i+1], true
}

func (s Status) position() int {
	for i, p := range progression {
		if p == s {
			return i
		}
	}
	return -1
}

// FulfillmentMethod is how the order reaches the customer
type FulfillmentMethod string

const (
	MethodPickup   FulfillmentMethod = "pickup"
	MethodDelivery FulfillmentMethod = "delivery"
)

// Order is the authoritative order document of the "orders" collection.
// DocID is the storage-assigned identity and is not part of the document body.
type Order struct {
	DocID        string            `json:"-"`
	Folio        string            `json:"id"`
	Date         string            `json:"date"`
	ReadyBy      string            `json:"readyBy,omitempty"`
	Quantity     int               `json:"quantity"`
	Subtotal     float64           `json:"subtotal"`
	ShippingCost float64           `json:"shippingCost"`
	Total        float64           `json:"total"`
	CustomerName string            `json:"customerName,omitempty"`
	Method       FulfillmentMethod `json:"method"`
	Address      string            `json:"address,omitempty"`
	Note         string            `json:"note,omitempty"`
	Status       Status            `json:"status,omitempty"`
	TrackingID   string            `json:"trackingId,omitempty"`
	CreatedAt    *time.Time        `json:"createdAt,omitempty"`
	UpdatedAt    *time.Time        `json:"updatedAt,omitempty"`
}

// CurrentStatus returns the order status, defaulting to new
func (o *Order) CurrentStatus() Status {
	return o.Status.OrDefault()
}
