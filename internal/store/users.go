package store

import (
	"context"

	"productcatalog/internal/models"
)

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return translate("create user", s.conn(ctx).Create(u).Error)
}

// UserByID loads a user together with its product references.
func (s *Store) UserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).Preload("ProductRefs").First(&u, "id = ?", id).Error; err != nil {
		return nil, translate("user by id", err)
	}
	return &u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).Preload("ProductRefs").Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate("user by email", err)
	}
	return &u, nil
}

func (s *Store) EmailTaken(ctx context.Context, email string) (bool, error) {
	var cnt int64
	err := s.conn(ctx).Model(&models.User{}).Where("email = ?", email).Count(&cnt).Error
	return cnt > 0, translate("count email", err)
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.conn(ctx).Preload("ProductRefs").Order("created asc").Find(&users).Error
	return users, translate("list users", err)
}

// AddProductRef appends productID to the user's reference set.
func (s *Store) AddProductRef(ctx context.Context, userID, productID string) error {
	ref := models.ProductRef{UserID: userID, ProductID: productID}
	return translate("add product ref", s.conn(ctx).Create(&ref).Error)
}

// RemoveProductRef drops productID from the user's reference set. A missing
// reference is reported as ErrNotFound.
func (s *Store) RemoveProductRef(ctx context.Context, userID, productID string) error {
	res := s.conn(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.ProductRef{})
	if res.Error != nil {
		return translate("remove product ref", res.Error)
	}
	if res.RowsAffected == 0 {
		return translate("remove product ref", ErrNotFound)
	}
	return nil
}
