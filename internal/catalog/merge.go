package catalog

import (
	"time"

	"github.com/volatiletech/null/v8"

	"productcatalog/internal/apperr"
	"productcatalog/internal/models"
)

// merge copies the fields present in in onto p, recomputes the publish date
// from the subscriber list and stamps DateModified. gtin and owner are never
// touched here. in must already be validated.
func merge(p *models.Product, in Input, now time.Time) error {
	setString(&p.Name, in.Name)
	setString(&p.Description, in.Description)
	setString(&p.Height, in.Height)
	setString(&p.Width, in.Width)
	setString(&p.Depth, in.Depth)
	setString(&p.Weight, in.Weight)
	setString(&p.MinTemp, in.MinTemp)
	setString(&p.MaxTemp, in.MaxTemp)
	setString(&p.StorageInstructions, in.StorageInstructions)

	ints := []struct {
		name string
		dst  **int64
		src  null.String
	}{
		{"category", &p.Category, in.Category},
		{"type", &p.Type, in.Type},
		{"packagingType", &p.PackagingType, in.PackagingType},
		{"tempUnits", &p.TempUnits, in.TempUnits},
	}
	for _, f := range ints {
		if !f.src.Valid {
			continue
		}
		n, err := parseOptionalInt(f.src.String)
		if err != nil {
			return apperr.Invalid("Invalid inputs passed, please check your data.", f.name)
		}
		*f.dst = n
	}

	if in.Subscribers.Valid {
		subs, err := ParseSubscribers(in.Subscribers.String)
		if err != nil {
			return apperr.Invalid("Invalid inputs passed, please check your data.", "subscribers")
		}
		p.SetSubscribers(subs, now)
	}

	p.Touch(now)
	return nil
}

func setString(dst *string, src null.String) {
	if src.Valid {
		*dst = src.String
	}
}
