package catalog

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"productcatalog/internal/apperr"
)

// Input carries the product fields of a create or update request. A field
// whose Valid flag is false was not sent and is left untouched; a Valid
// empty string is applied as given.
type Input struct {
	GTIN        null.String
	Name        null.String
	Description null.String

	Category      null.String
	Type          null.String
	PackagingType null.String
	TempUnits     null.String

	Height              null.String
	Width               null.String
	Depth               null.String
	Weight              null.String
	MinTemp             null.String
	MaxTemp             null.String
	StorageInstructions null.String

	// Subscribers is a comma separated list of integers. Sending an empty
	// value clears the list.
	Subscribers null.String

	// Image is the raw upload, nil when no file was attached.
	Image []byte
}

// fields is what the validators see. Each rule set lives under its own tag.
type fields struct {
	GTIN                *string `json:"gtin" create:"required,number,len=14" update:"omitnil,number,len=14"`
	Name                *string `json:"name" create:"required,min=1,max=255" update:"omitnil,min=1,max=255"`
	Description         *string `json:"description" create:"required,min=10" update:"omitnil,min=10"`
	Category            *string `json:"category" create:"omitnil,optint" update:"omitnil,optint"`
	Type                *string `json:"type" create:"omitnil,optint" update:"omitnil,optint"`
	PackagingType       *string `json:"packagingType" create:"omitnil,optint" update:"omitnil,optint"`
	TempUnits           *string `json:"tempUnits" create:"omitnil,optint" update:"omitnil,optint"`
	Height              *string `json:"height" create:"omitnil,max=64" update:"omitnil,max=64"`
	Width               *string `json:"width" create:"omitnil,max=64" update:"omitnil,max=64"`
	Depth               *string `json:"depth" create:"omitnil,max=64" update:"omitnil,max=64"`
	Weight              *string `json:"weight" create:"omitnil,max=64" update:"omitnil,max=64"`
	MinTemp             *string `json:"minTemp" create:"omitnil,max=64" update:"omitnil,max=64"`
	MaxTemp             *string `json:"maxTemp" create:"omitnil,max=64" update:"omitnil,max=64"`
	StorageInstructions *string `json:"storageInstructions" create:"omitnil,max=2000" update:"omitnil,max=2000"`
	Subscribers         *string `json:"subscribers" create:"omitnil,intlist" update:"omitnil,intlist"`
}

func (in Input) fields() fields {
	return fields{
		GTIN:                in.GTIN.Ptr(),
		Name:                in.Name.Ptr(),
		Description:         in.Description.Ptr(),
		Category:            in.Category.Ptr(),
		Type:                in.Type.Ptr(),
		PackagingType:       in.PackagingType.Ptr(),
		TempUnits:           in.TempUnits.Ptr(),
		Height:              in.Height.Ptr(),
		Width:               in.Width.Ptr(),
		Depth:               in.Depth.Ptr(),
		Weight:              in.Weight.Ptr(),
		MinTemp:             in.MinTemp.Ptr(),
		MaxTemp:             in.MaxTemp.Ptr(),
		StorageInstructions: in.StorageInstructions.Ptr(),
		Subscribers:         in.Subscribers.Ptr(),
	}
}

// validators holds one validator per rule set.
type validators struct {
	create *validator.Validate
	update *validator.Validate
}

func newValidators() validators {
	return validators{create: newValidator("create"), update: newValidator("update")}
}

func newValidator(tag string) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName(tag)
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("intlist", func(fl validator.FieldLevel) bool {
		_, err := ParseSubscribers(fl.Field().String())
		return err == nil
	})
	// optint accepts a non-negative integer or a blank value, which clears
	// the field.
	_ = v.RegisterValidation("optint", func(fl validator.FieldLevel) bool {
		n, err := parseOptionalInt(fl.Field().String())
		return err == nil && (n == nil || *n >= 0)
	})
	return v
}

// check runs v over in and turns failures into an InvalidInput error that
// names every offending field.
func check(v *validator.Validate, in Input) error {
	err := v.Struct(in.fields())
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.Wrap(apperr.KindInvalidInput, err, "Invalid inputs passed, please check your data.")
	}
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		names = append(names, fe.Field())
	}
	return apperr.Invalid("Invalid inputs passed, please check your data.", names...)
}

// ParseSubscribers splits a comma separated list of integers. Blank input
// yields an empty list.
func ParseSubscribers(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []int64{}, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// parseOptionalInt parses a validated numeric field.
func parseOptionalInt(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
