package store

import (
	"context"

	"gorm.io/gorm/clause"

	"productcatalog/internal/models"
)

func (s *Store) ProductByGTIN(ctx context.Context, gtin string) (*models.Product, error) {
	var p models.Product
	if err := s.conn(ctx).Where("gtin = ?", gtin).First(&p).Error; err != nil {
		return nil, translate("product by gtin", err)
	}
	return &p, nil
}

// ProductForUpdate loads the product with gtin and locks its row until the
// surrounding transaction ends. Dialects without row locks ignore the lock.
func (s *Store) ProductForUpdate(ctx context.Context, gtin string) (*models.Product, error) {
	var p models.Product
	err := s.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("gtin = ?", gtin).
		First(&p).Error
	if err != nil {
		return nil, translate("product for update", err)
	}
	return &p, nil
}

func (s *Store) GTINExists(ctx context.Context, gtin string) (bool, error) {
	var cnt int64
	err := s.conn(ctx).Model(&models.Product{}).Where("gtin = ?", gtin).Count(&cnt).Error
	return cnt > 0, translate("count gtin", err)
}

// ProductsByOwner resolves the user's reference set into products.
func (s *Store) ProductsByOwner(ctx context.Context, userID string) ([]models.Product, error) {
	var items []models.Product
	err := s.conn(ctx).
		Joins("JOIN product_refs ON product_refs.product_id = products.id").
		Where("product_refs.user_id = ?", userID).
		Order("products.date_added asc").
		Find(&items).Error
	return items, translate("products by owner", err)
}

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	return translate("create product", s.conn(ctx).Create(p).Error)
}

// UpdateProduct writes every column of p onto the existing row. A row that
// is gone is reported as ErrNotFound, never re-inserted.
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	res := s.conn(ctx).
		Model(&models.Product{}).
		Where("id = ?", p.ID).
		Select("*").
		Omit("id", clause.Associations).
		Updates(p)
	if res.Error != nil {
		return translate("update product", res.Error)
	}
	if res.RowsAffected == 0 {
		return translate("update product", ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res := s.conn(ctx).Where("id = ?", id).Delete(&models.Product{})
	if res.Error != nil {
		return translate("delete product", res.Error)
	}
	if res.RowsAffected == 0 {
		return translate("delete product", ErrNotFound)
	}
	return nil
}
