package order

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPaid       Status = "paid"
	StatusDispatched Status = "dispatched"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// ParseStatus validates a caller-supplied status name.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPaid, StatusDispatched, StatusDelivered, StatusCancelled:
		return Status(s), nil
	}
	return "", fmt.Errorf("unrecognized order status %q", s)
}

type Order struct {
	ID           int64     `json:"id"`
	Reference    string    `json:"referenceNumber"`
	TotalPrice   float64   `json:"totalPrice"`
	OrderDate    time.Time `json:"orderDate"`
	ShippingDate time.Time `json:"shippingDate"`
	Status       Status    `json:"status"`
	CustomerID   int64     `json:"customerId"`
}

// Line snapshots product id, quantity and unit price at the time of
// purchase, decoupled from later catalog price changes.
type Line struct {
	ID        int64   `json:"id"`
	OrderID   int64   `json:"orderId"`
	ProductID int64   `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}
