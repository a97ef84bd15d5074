package models

import "time"

// Page is a connected business page and the operator who answers it.
type Page struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	PageID          string    `json:"pageId" gorm:"not null;uniqueIndex"`
	PageName        string    `json:"pageName"`
	PageAccessToken string    `json:"-" gorm:"not null"`
	OperatorID      string    `json:"operatorId" gorm:"index"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
