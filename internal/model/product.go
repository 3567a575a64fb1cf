package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/pgvector/pgvector-go"
)

// Product represents a webshop product
type Product struct {
	ID             int64           `json:"id" db:"id"`
	ProductID      int64           `json:"product_id" db:"product_id"`
	Title          *string         `json:"title,omitempty" db:"title"`
	Description    *string         `json:"description,omitempty" db:"description"`
	ProductType    *string         `json:"product_type,omitempty" db:"product_type"`
	Vendor         *string         `json:"vendor,omitempty" db:"vendor"`
	Price          *float64        `json:"price,omitempty" db:"price"`
	CompareAtPrice *float64        `json:"compare_at_price,omitempty" db:"compare_at_price"`
	Tags           JSONArray       `json:"tags,omitempty" db:"tags"`
	Attributes     JSONMap         `json:"attributes,omitempty" db:"attributes"`
	ImageURL       *string         `json:"image_url,omitempty" db:"image_url"`
	URL            *string         `json:"url,omitempty" db:"url"`
	InStock        bool            `json:"in_stock" db:"in_stock"`
	StockQuantity  *int            `json:"stock_quantity,omitempty" db:"stock_quantity"`
	PublishedAt    *time.Time      `json:"published_at,omitempty" db:"published_at"`
	Embedding      pgvector.Vector `json:"-" db:"embedding"`
	TextRank       *float64        `json:"text_rank,omitempty" db:"text_rank"` // Full-text search ranking
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// OnSale reports whether the product is discounted from a higher
// compare-at price.
func (p *Product) OnSale() bool {
	return p.CompareAtPrice != nil && p.Price != nil && *p.CompareAtPrice > *p.Price
}

// ProductSearchResult represents a search result with ranking metadata
type ProductSearchResult struct {
	Product
	Score          float64  `json:"score"`
	MatchedReasons []string `json:"matched_reasons"`
}

// JSONArray represents a JSON array field
type JSONArray []string

// Value implements driver.Valuer interface
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return json.Unmarshal([]byte(value.(string)), j)
	}
	return json.Unmarshal(bytes, j)
}

// JSONMap represents a JSON object field
type JSONMap map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return json.Unmarshal([]byte(value.(string)), j)
	}
	return json.Unmarshal(bytes, j)
}
