package models

// Client represents a player account with a money balance.
type Client struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Balance float64 `json:"balance"`
}
