package domain

import "time"

// Product is the canonical catalog record handed to display code.
// Every field is always populated.
type Product struct {
	ID          string      `json:"_id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       float64     `json:"price"`
	Image       string      `json:"image"`
	Images      []string    `json:"images"`
	Category    Category    `json:"category"`
	Attributes  []Attribute `json:"attributes"`
	Status      string      `json:"status"`
	IsActive    bool        `json:"isActive"`
	InStock     bool        `json:"inStock"`
	Stock       int         `json:"stock"`
	Rating      float64     `json:"rating"`
	Reviews     int         `json:"reviews"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Category groups products.
type Category struct {
	ID   string `json:"_id,omitempty"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// Attribute is a free-form product property such as color or size.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
)
