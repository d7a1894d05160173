package models

import "time"

// User is the record kept for every identity-provider user we have seen.
// ExternalUserID is the provider's id and is unique in both backends.
type User struct {
	ID             uint      `json:"-" bson:"-" gorm:"primaryKey"`
	ExternalUserID string    `json:"externalUserId" bson:"externalUserId" gorm:"uniqueIndex;not null"`
	Email          string    `json:"email" bson:"email" gorm:"not null"`
	CreatedAt      time.Time `json:"createdAt" bson:"createdAt"`
}
