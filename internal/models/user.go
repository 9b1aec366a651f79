package models

import "time"

type UserType string

const (
	UserTypeBuyer    UserType = "buyer"
	UserTypeSupplier UserType = "supplier"
)

// User is a registered marketplace account. PasswordHash never leaves the service.
type User struct {
	ID           string    `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	FirstName    string    `json:"firstName" bson:"firstName" gorm:"type:varchar(100)"`
	LastName     string    `json:"lastName" bson:"lastName" gorm:"type:varchar(100)"`
	Email        string    `json:"email" bson:"email" gorm:"uniqueIndex;type:varchar(255)"`
	Phone        string    `json:"phone" bson:"phone" gorm:"type:varchar(50)"`
	Country      string    `json:"country" bson:"country" gorm:"type:varchar(100)"`
	PasswordHash string    `json:"-" bson:"passwordHash" gorm:"type:varchar(255)"`
	UserType     UserType  `json:"userType" bson:"userType" gorm:"type:varchar(16)"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// OTP is a short-lived password reset code. There is at most one per email.
type OTP struct {
	Email     string    `json:"email" bson:"email" gorm:"primaryKey;type:varchar(255)"`
	Code      string    `json:"-" bson:"code" gorm:"type:varchar(12)"`
	ExpiresAt time.Time `json:"expiresAt" bson:"expiresAt" gorm:"index"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

func (o *OTP) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
