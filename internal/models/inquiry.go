package models

import "time"

type InquiryStatus string

const (
	InquiryPending   InquiryStatus = "pending"
	InquiryContacted InquiryStatus = "contacted"
	InquiryClosed    InquiryStatus = "closed"
)

// Valid reports membership in the flat status set. Any status may follow any other.
func (s InquiryStatus) Valid() bool {
	switch s {
	case InquiryPending, InquiryContacted, InquiryClosed:
		return true
	}
	return false
}

// Inquiry is a buyer's request for quotation on one product.
// ProductName is copied at creation and not kept in sync with later renames.
type Inquiry struct {
	ID          string        `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	ProductID   string        `json:"productId" bson:"productId" gorm:"index;type:varchar(36)"`
	ProductName string        `json:"productName" bson:"productName" gorm:"type:varchar(200)"`
	Name        string        `json:"name" bson:"name" gorm:"type:varchar(150)"`
	Email       string        `json:"email" bson:"email" gorm:"type:varchar(255)"`
	Company     string        `json:"company,omitempty" bson:"company,omitempty" gorm:"type:varchar(200)"`
	Phone       string        `json:"phone,omitempty" bson:"phone,omitempty" gorm:"type:varchar(50)"`
	Message     string        `json:"message,omitempty" bson:"message,omitempty" gorm:"type:text"`
	Quantity    int           `json:"quantity" bson:"quantity"`
	Status      InquiryStatus `json:"status" bson:"status" gorm:"index;type:varchar(16)"`
	CreatedAt   time.Time     `json:"createdAt" bson:"createdAt"`
}

type InquiryFilter struct {
	Status InquiryStatus
}
