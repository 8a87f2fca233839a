package model

import (
	"time"

	"github.com/google/uuid"
)

// Delivery time windows accepted by the carrier. The strings are the wire
// values shown on the form.
const (
	DeliveryTimeUnspecified = "指定なし"
	DeliveryTimeMorning     = "午前中"
	DeliveryTime1416        = "14:00〜16:00"
	DeliveryTime1618        = "16:00〜18:00"
	DeliveryTime1921        = "19:00〜21:00"
)

var validDeliveryTimes = map[string]bool{
	DeliveryTimeUnspecified: true,
	DeliveryTimeMorning:     true,
	DeliveryTime1416:        true,
	DeliveryTime1618:        true,
	DeliveryTime1921:        true,
}

// ValidDeliveryTime reports whether s is one of the accepted delivery time
// windows. The empty string is accepted and normalised to unspecified.
func ValidDeliveryTime(s string) bool {
	return s == "" || validDeliveryTimes[s]
}

// Order is one confirmed customer order. It is constructed once at
// confirmation time and never mutated afterwards; the only lifecycle
// operation besides creation is administrative deletion.
type Order struct {
	ID          uuid.UUID `json:"id" db:"id"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	OrderNumber string    `json:"orderNumber" db:"order_number"`

	Name       string `json:"name" db:"customer_name"`
	PostalCode string `json:"postalCode" db:"customer_postal_code"`
	Address    string `json:"address" db:"customer_address"`
	Phone      string `json:"phone" db:"customer_phone"`

	// SameAsReceiver marks the receiver fields as copies of the customer
	// fields. The copy is made before persistence, so the receiver fields
	// below are always populated regardless of this flag.
	SameAsReceiver     bool   `json:"isSameReceiver" db:"same_as_receiver"`
	ReceiverName       string `json:"receiverName" db:"receiver_name"`
	ReceiverPostalCode string `json:"receiverPostalCode" db:"receiver_postal_code"`
	ReceiverAddress    string `json:"receiverAddress" db:"receiver_address"`
	ReceiverPhone      string `json:"receiverPhone" db:"receiver_phone"`

	DeliveryDate string `json:"deliveryDate" db:"delivery_date"`
	DeliveryTime string `json:"deliveryTime" db:"delivery_time"`

	Items []OrderItem `json:"items"`
}

// OrderItem is a line item in an order. Name is resolved from the catalog at
// submission time, never taken from client input.
type OrderItem struct {
	Code     string `json:"itemCode" db:"item_code"`
	Name     string `json:"itemName" db:"item_name"`
	Quantity int    `json:"quantity" db:"quantity"`
}

// OrderRequest is the submission payload from the order form.
type OrderRequest struct {
	Name       string `json:"name"`
	PostalCode string `json:"postalCode"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`

	SameAsReceiver     bool   `json:"isSameReceiver"`
	ReceiverName       string `json:"receiverName"`
	ReceiverPostalCode string `json:"receiverPostalCode"`
	ReceiverAddress    string `json:"receiverAddress"`
	ReceiverPhone      string `json:"receiverPhone"`

	DeliveryDate string `json:"deliveryDate"`
	DeliveryTime string `json:"deliveryTime"`

	Items []OrderItemRequest `json:"items"`
}

// OrderItemRequest is a single item row from the form. A zero quantity means
// the row was left blank and is dropped, not rejected.
type OrderItemRequest struct {
	Code     string `json:"itemCode"`
	Quantity int    `json:"quantity"`
}
