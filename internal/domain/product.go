package domain

import "time"

// Product is the sole source of truth for live inventory. Prices are integer
// cents to keep order totals exact.
type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Inventory int       `json:"inventory"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateProductRequest struct {
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Inventory int    `json:"inventory"`
}

type UpdateProductRequest struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

type UpdateInventoryRequest struct {
	Inventory int `json:"inventory"`
}
