// Package model contains the GORM models persisted by the recipebox server.
package model

import "time"

// AdminUsername is the account name seeded with admin rights on first start.
const AdminUsername = "admin"

type User struct {
	Id           int       `json:"id" gorm:"primaryKey;autoIncrement"`
	Username     string    `json:"username" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;not null"`
	IsAdmin      bool      `json:"isAdmin" gorm:"not null;default:false"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Recipe belongs to exactly one user; deleting the user deletes its recipes.
type Recipe struct {
	Id          int       `json:"id" form:"id" gorm:"primaryKey;autoIncrement"`
	RecipeName  string    `json:"recipeName" form:"recipeName" gorm:"not null"`
	Ingredients string    `json:"ingredients" form:"ingredients" gorm:"type:text;not null"`
	UserId      int       `json:"-" gorm:"index;not null"`
	User        *User     `json:"-" gorm:"foreignKey:UserId;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
