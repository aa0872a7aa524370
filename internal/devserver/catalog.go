package devserver

import "github.com/shopspring/decimal"

// Product is a catalogue entry. Stock is decremented when an order is placed.
type Product struct {
	ID       int64           `json:"productId"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"imageUrl,omitempty"`
	Stock    int             `json:"stock"`
}

func seedCatalog() []Product {
	return []Product{
		{ID: 1, Name: "Wireless Mouse", Price: decimal.RequireFromString("24.99"), ImageURL: "/images/mouse.png", Stock: 120},
		{ID: 2, Name: "Mechanical Keyboard", Price: decimal.RequireFromString("89.50"), ImageURL: "/images/keyboard.png", Stock: 60},
		{ID: 7, Name: "USB-C Hub", Price: decimal.RequireFromString("39.00"), ImageURL: "/images/hub.png", Stock: 75},
		{ID: 13, Name: "27\" Monitor", Price: decimal.RequireFromString("229.99"), ImageURL: "/images/monitor.png", Stock: 15},
		{ID: 42, Name: "Noise Cancelling Headphones", Price: decimal.RequireFromString("149.95"), ImageURL: "/images/headphones.png", Stock: 40},
		{ID: 51, Name: "Laptop Stand", Price: decimal.RequireFromString("32.40"), ImageURL: "/images/stand.png", Stock: 90},
	}
}
