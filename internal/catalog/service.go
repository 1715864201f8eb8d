// Package catalog runs the product workflows: look the product up, check
// ownership, validate, stage the image, merge fields, commit the product and
// the owner's reference set in one transaction, then sync blob storage.
package catalog

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"productcatalog/internal/apperr"
	"productcatalog/internal/auth"
	"productcatalog/internal/blobstore"
	"productcatalog/internal/models"
	"productcatalog/internal/store"
)

// SyncObserver is told about blob operations that failed after commit.
type SyncObserver interface {
	BlobSyncFailed(op string)
}

type Service struct {
	store    *store.Store
	blobs    blobstore.Store
	gate     *auth.Gate
	log      *zap.Logger
	observer SyncObserver
	v        validators
	now      func() time.Time
}

func NewService(st *store.Store, blobs blobstore.Store, gate *auth.Gate, log *zap.Logger, observer SyncObserver) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:    st,
		blobs:    blobs,
		gate:     gate,
		log:      log.Named("catalog"),
		observer: observer,
		v:        newValidators(),
		now:      time.Now,
	}
}

// Create adds a product owned by the caller and appends it to the caller's
// reference set.
func (s *Service) Create(ctx context.Context, caller auth.Identity, in Input) (*models.Product, error) {
	if err := check(s.v.create, in); err != nil {
		return nil, err
	}

	owner, err := s.store.UserByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, err, "Could not find user for provided id")
		}
		return nil, apperr.Wrap(apperr.KindStorageFailure, err, "Creating product failed, please try again")
	}

	staged, err := stage(in.Image)
	if err != nil {
		return nil, err
	}

	now := s.now()
	p := &models.Product{
		ID:          models.NewID(),
		DateAdded:   now,
		Subscribers: []int64{},
		OwnerID:     owner.ID,
	}
	if err := merge(p, in, now); err != nil {
		return nil, err
	}
	p.GTIN = in.GTIN.String
	if staged != nil {
		p.Image = &staged.Key
	}

	err = s.store.WithTx(ctx, func(tx *store.Store) error {
		exists, err := tx.GTINExists(ctx, p.GTIN)
		if err != nil {
			return err
		}
		if exists {
			return store.ErrDuplicate
		}
		if err := tx.CreateProduct(ctx, p); err != nil {
			return err
		}
		return tx.AddProductRef(ctx, owner.ID, p.ID)
	})
	if err != nil {
		return nil, commitErr(err, "Creating product failed, please try again!")
	}

	if staged != nil {
		s.put(ctx, "create", staged)
	}
	return p, nil
}

// Update applies the fields present in in to the product with gtin.
func (s *Service) Update(ctx context.Context, caller auth.Identity, gtin string, in Input) (*models.Product, error) {
	p, err := s.lookup(ctx, gtin, "Something went wrong, could not update product")
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(caller, p.OwnerID); err != nil {
		return nil, err
	}
	if err := check(s.v.update, in); err != nil {
		return nil, err
	}
	if in.GTIN.Valid && in.GTIN.String != p.GTIN {
		return nil, apperr.Invalid("The gtin of a product cannot be changed.", "gtin")
	}

	staged, err := stage(in.Image)
	if err != nil {
		return nil, err
	}

	// Merge onto the row read inside the transaction. A row deleted since
	// the lookup fails the update.
	var (
		updated  *models.Product
		oldImage string
	)
	err = s.store.WithTx(ctx, func(tx *store.Store) error {
		cur, err := tx.ProductForUpdate(ctx, gtin)
		if err != nil {
			return err
		}
		if err := s.gate.Authorize(caller, cur.OwnerID); err != nil {
			return err
		}
		if cur.Image != nil {
			oldImage = *cur.Image
		}
		if err := merge(cur, in, s.now()); err != nil {
			return err
		}
		if staged != nil {
			cur.Image = &staged.Key
		}
		if err := tx.UpdateProduct(ctx, cur); err != nil {
			return err
		}
		updated = cur
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, err, "Could not find product for the provided gtin")
		}
		return nil, commitErr(err, "Something went wrong, could not update product")
	}
	p = updated

	if staged != nil {
		// The old blob goes only once the new one is stored.
		if s.put(ctx, "update", staged) && oldImage != "" {
			s.delete(ctx, "update", oldImage)
		}
	}
	return p, nil
}

// Delete removes the product with gtin and drops it from the owner's
// reference set. The deleted record is returned for the acknowledgement.
func (s *Service) Delete(ctx context.Context, caller auth.Identity, gtin string) (*models.Product, error) {
	p, err := s.lookup(ctx, gtin, "Something went wrong, could not delete product")
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(caller, p.OwnerID); err != nil {
		return nil, err
	}

	var deleted *models.Product
	err = s.store.WithTx(ctx, func(tx *store.Store) error {
		cur, err := tx.ProductForUpdate(ctx, gtin)
		if err != nil {
			return err
		}
		if err := s.gate.Authorize(caller, cur.OwnerID); err != nil {
			return err
		}
		// A missing reference is already the state we want.
		if err := tx.RemoveProductRef(ctx, cur.OwnerID, cur.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := tx.DeleteProduct(ctx, cur.ID); err != nil {
			return err
		}
		deleted = cur
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, err, "Could not find product for the provided gtin")
		}
		return nil, commitErr(err, "Something went wrong, could not complete product delete")
	}
	p = deleted

	if p.Image != nil && *p.Image != "" {
		s.delete(ctx, "delete", *p.Image)
	}
	return p, nil
}

// ProductByGTIN returns the product with its image key replaced by a
// retrieval URL.
func (s *Service) ProductByGTIN(ctx context.Context, gtin string) (*models.Product, error) {
	p, err := s.lookup(ctx, gtin, "Something went wrong, could not find product")
	if err != nil {
		return nil, err
	}
	if err := s.ResolveImage(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ProductsByUser lists the products in the user's reference set.
func (s *Service) ProductsByUser(ctx context.Context, userID string) ([]models.Product, error) {
	if _, err := s.store.UserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, err, "Could not find products for the provided user id")
		}
		return nil, apperr.Wrap(apperr.KindStorageFailure, err, "Fetching user products failed, please try again")
	}
	items, err := s.store.ProductsByOwner(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageFailure, err, "Fetching user products failed, please try again")
	}
	for i := range items {
		if err := s.ResolveImage(ctx, &items[i]); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (s *Service) lookup(ctx context.Context, gtin, failMsg string) (*models.Product, error) {
	p, err := s.store.ProductByGTIN(ctx, gtin)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, err, "Could not find product for the provided gtin")
		}
		return nil, apperr.Wrap(apperr.KindStorageFailure, err, failMsg)
	}
	return p, nil
}

// ResolveImage replaces the stored image key of p with a retrieval URL.
func (s *Service) ResolveImage(ctx context.Context, p *models.Product) error {
	if p.Image == nil || *p.Image == "" {
		return nil
	}
	u, err := s.blobs.URL(ctx, *p.Image)
	if err != nil {
		return apperr.Wrap(apperr.KindStorageFailure, err, "Could not load product image")
	}
	p.Image = &u
	return nil
}

// put uploads a staged image after commit. Failures are logged and
// reported, never returned: the record is already committed.
func (s *Service) put(ctx context.Context, op string, st *blobstore.Staged) bool {
	if err := s.blobs.Put(ctx, st.Key, st.Data, st.ContentType); err != nil {
		s.log.Error("blob upload failed after commit", zap.String("op", op), zap.String("key", st.Key), zap.Error(err))
		s.syncFailed(op + "_put")
		return false
	}
	return true
}

func (s *Service) delete(ctx context.Context, op, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.log.Error("blob delete failed after commit", zap.String("op", op), zap.String("key", key), zap.Error(err))
		s.syncFailed(op + "_delete")
	}
}

func (s *Service) syncFailed(op string) {
	if s.observer != nil {
		s.observer.BlobSyncFailed(op)
	}
}

func stage(data []byte) (*blobstore.Staged, error) {
	if data == nil {
		return nil, nil
	}
	st, err := blobstore.Stage(data)
	if err != nil {
		e := apperr.Invalid("Unsupported image format, use png, jpg or webp.", "image")
		e.Err = err
		return nil, e
	}
	return st, nil
}

func commitErr(err error, msg string) error {
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, store.ErrDuplicate):
		return apperr.Wrap(apperr.KindConflict, err, "A product with that gtin already exists")
	case errors.Is(err, store.ErrNotFound):
		return apperr.Wrap(apperr.KindNotFound, err, msg)
	default:
		return apperr.Wrap(apperr.KindStorageFailure, err, msg)
	}
}
