package model

import (
	"time"

	"github.com/google/uuid"
)

// Order statuses considered when building a schedule.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
)

// Order is a customer order with one or more line items.
// Priority is numeric, lower values are more urgent.
type Order struct {
	ID           uuid.UUID
	OrderNo      string
	CustomerName string
	DueDate      time.Time
	Priority     int
	Status       string
	Items        []OrderItem
}

// OrderItem is one line of an order: a product and a quantity.
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	Product   Product
}
