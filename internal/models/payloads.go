package models

import "strings"

// EntityKind discriminates the admin-managed content types.
type EntityKind string

const (
	KindCategory    EntityKind = "category"
	KindProduct     EntityKind = "product"
	KindTestimonial EntityKind = "testimonial"
)

// AdminPayload is the create/update input of one admin-managed entity kind.
// Each kind carries only its own fields.
type AdminPayload interface {
	Kind() EntityKind
	Validate() error
}

type CategoryPayload struct {
	Name        string `json:"name" form:"name" validate:"required,max=150"`
	Description string `json:"description" form:"description" validate:"max=2000"`
}

func (CategoryPayload) Kind() EntityKind { return KindCategory }

func (p *CategoryPayload) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	return ValidateStruct(p)
}

type ProductPayload struct {
	Name           string         `json:"name" validate:"required,max=200"`
	SupplierName   string         `json:"supplierName" validate:"max=200"`
	TieredPricing  []TierPrice    `json:"tieredPricing"`
	MOQ            int            `json:"moq" validate:"gte=0"`
	CategoryID     string         `json:"categoryId" validate:"required"`
	Verified       bool           `json:"verified"`
	Featured       bool           `json:"featured"`
	Description    string         `json:"description" validate:"max=5000"`
	Specifications Specifications `json:"specifications"`
}

func (ProductPayload) Kind() EntityKind { return KindProduct }

func (p *ProductPayload) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.CategoryID = strings.TrimSpace(p.CategoryID)
	if err := ValidateStruct(p); err != nil {
		return err
	}
	if err := ValidateTiers(p.TieredPricing); err != nil {
		return err
	}
	if p.MOQ == 0 {
		p.MOQ = p.TieredPricing[0].MinQty
	}
	return nil
}

type TestimonialPayload struct {
	Text   string `json:"text" form:"text" validate:"required,max=2000"`
	Author string `json:"author" form:"author" validate:"required,max=150"`
}

func (TestimonialPayload) Kind() EntityKind { return KindTestimonial }

func (p *TestimonialPayload) Validate() error {
	p.Text = strings.TrimSpace(p.Text)
	p.Author = strings.TrimSpace(p.Author)
	return ValidateStruct(p)
}
