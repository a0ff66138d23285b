package models

import "time"

// Resource represents a resource held in the bank vault. BaseRate expresses
// how many units of the resource equal one diamond.
type Resource struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Amount   int64   `json:"amount"`
	BaseRate float64 `json:"base_rate"`
}

// ResourcePrice is a resource together with its derived unit price.
type ResourcePrice struct {
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Amount int64   `json:"amount"`
}

// PriceHistoryEntry is one price snapshot for a resource.
type PriceHistoryEntry struct {
	ID           int64     `json:"id"`
	ResourceName string    `json:"resource_name"`
	Price        float64   `json:"price"`
	Timestamp    time.Time `json:"timestamp"`
}
