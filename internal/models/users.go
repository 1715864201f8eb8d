package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// PasswordCost is the bcrypt work factor for stored passwords.
const PasswordCost = 12

// User owns a set of products through ProductRef rows.
type User struct {
	ID           string       `gorm:"primaryKey;size:36" json:"id"`
	Name         string       `gorm:"not null" json:"name"`
	Company      string       `gorm:"not null" json:"company"`
	Email        string       `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string       `gorm:"not null" json:"-"`
	Created      time.Time    `gorm:"not null" json:"created"`
	ProductRefs  []ProductRef `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}

// ProductIDs returns the ids in the user's reference set.
func (u *User) ProductIDs() []string {
	ids := make([]string, 0, len(u.ProductRefs))
	for _, ref := range u.ProductRefs {
		ids = append(ids, ref.ProductID)
	}
	return ids
}

// HasProduct reports whether id is in the user's reference set.
func (u *User) HasProduct(id string) bool {
	for _, ref := range u.ProductRefs {
		if ref.ProductID == id {
			return true
		}
	}
	return false
}

// HashPassword hashes pw with PasswordCost.
func HashPassword(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), PasswordCost)
	return string(hash), err
}

// CheckPassword reports whether pw matches hash.
func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
