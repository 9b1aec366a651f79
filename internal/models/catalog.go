package models

import "time"

// Category groups products. ImagePath is relative to the upload base URL.
type Category struct {
	ID          string    `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	Name        string    `json:"name" bson:"name" gorm:"type:varchar(150)"`
	Description string    `json:"description" bson:"description" gorm:"type:text"`
	ImagePath   string    `json:"imagePath" bson:"imagePath" gorm:"type:varchar(255)"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

// Specifications is the fixed set of optional product attributes shown on a product page.
type Specifications struct {
	Material      string `json:"material,omitempty" bson:"material,omitempty"`
	Size          string `json:"size,omitempty" bson:"size,omitempty"`
	Color         string `json:"color,omitempty" bson:"color,omitempty"`
	Weight        string `json:"weight,omitempty" bson:"weight,omitempty"`
	Capacity      string `json:"capacity,omitempty" bson:"capacity,omitempty"`
	Origin        string `json:"origin,omitempty" bson:"origin,omitempty"`
	Certification string `json:"certification,omitempty" bson:"certification,omitempty"`
}

// Product is a catalog listing sold by a supplier under a tiered price schedule.
type Product struct {
	ID             string         `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	Name           string         `json:"name" bson:"name" gorm:"type:varchar(200)"`
	SupplierName   string         `json:"supplierName" bson:"supplierName" gorm:"type:varchar(200)"`
	TieredPricing  []TierPrice    `json:"tieredPricing" bson:"tieredPricing" gorm:"serializer:json"`
	MOQ            int            `json:"moq" bson:"moq" gorm:"column:moq"`
	CategoryID     string         `json:"categoryId" bson:"categoryId" gorm:"index;type:varchar(36)"`
	ImagePath      string         `json:"imagePath" bson:"imagePath" gorm:"type:varchar(255)"`
	Verified       bool           `json:"verified" bson:"verified"`
	Featured       bool           `json:"featured" bson:"featured" gorm:"index"`
	Description    string         `json:"description" bson:"description" gorm:"type:text"`
	Specifications Specifications `json:"specifications" bson:"specifications" gorm:"serializer:json"`
	ReviewCount    int            `json:"reviewCount" bson:"reviewCount"`
	OrderCount     int            `json:"orderCount" bson:"orderCount"`
	CreatedAt      time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// PriceForQuantity returns the unit price this product charges for qty units.
func (p *Product) PriceForQuantity(qty int) (float64, error) {
	return PriceForQuantity(p.TieredPricing, qty)
}

// ProductFilter narrows product listings. Nil pointers do not filter.
type ProductFilter struct {
	CategoryID string
	Featured   *bool
	Verified   *bool
}

type Testimonial struct {
	ID        string    `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	Text      string    `json:"text" bson:"text" gorm:"type:text"`
	Author    string    `json:"author" bson:"author" gorm:"type:varchar(150)"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// SearchResult is the response shape of a catalog search.
type SearchResult struct {
	Query        string    `json:"query"`
	Products     []Product `json:"products"`
	ProductCount int       `json:"productCount"`
}
