package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/volatiletech/null/v8"

	"productcatalog/internal/apperr"
	"productcatalog/internal/catalog"
)

// multipartMemory is how much of a multipart body is kept in memory before
// parts spill to temp files.
const multipartMemory = 8 << 20

// formOverhead is the room left for text fields on top of the image limit.
const formOverhead = 1 << 20

const invalidInputMsg = "Invalid inputs passed, please check your data."

// ---------- product input ----------

// productInput reads the product fields from a multipart, urlencoded or JSON
// body. Fields that were not sent stay invalid in the returned Input.
func productInput(c *gin.Context, maxImage int64) (catalog.Input, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImage+formOverhead)

	mediaType, _, _ := mime.ParseMediaType(c.ContentType())
	if mediaType == gin.MIMEJSON {
		return jsonInput(c.Request.Body)
	}

	if err := parseForm(c); err != nil {
		return catalog.Input{}, err
	}
	lookup := func(key string) null.String {
		v, ok := c.GetPostForm(key)
		return null.NewString(v, ok)
	}
	in := inputFrom(lookup)

	img, err := formImage(c, maxImage)
	if err != nil {
		return catalog.Input{}, err
	}
	in.Image = img
	return in, nil
}

func parseForm(c *gin.Context) error {
	var err error
	if strings.HasPrefix(c.ContentType(), gin.MIMEMultipartPOSTForm) {
		err = c.Request.ParseMultipartForm(multipartMemory)
	} else {
		err = c.Request.ParseForm()
	}
	if err == nil {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		e := apperr.Invalid("The uploaded file is too large.", "image")
		e.Err = err
		return e
	}
	return apperr.Wrap(apperr.KindInvalidInput, err, invalidInputMsg)
}

// formImage reads the optional image part. A missing part is not an error.
func formImage(c *gin.Context, max int64) ([]byte, error) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, err, invalidInputMsg)
	}
	if fh.Size > max {
		return nil, apperr.Invalid("The uploaded file is too large.", "image")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageFailure, err, "Could not read the uploaded file.")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, max+1))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageFailure, err, "Could not read the uploaded file.")
	}
	if int64(len(data)) > max {
		return nil, apperr.Invalid("The uploaded file is too large.", "image")
	}
	return data, nil
}

// cleanupMultipart removes spilled multipart temp files once the request is
// done.
func cleanupMultipart(c *gin.Context) {
	c.Next()
	if c.Request.MultipartForm != nil {
		_ = c.Request.MultipartForm.RemoveAll()
	}
}

// jsonInput accepts strings as given, numbers and booleans as their literal
// text, and null as an explicit empty value.
func jsonInput(r io.Reader) (catalog.Input, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return catalog.Input{}, apperr.Wrap(apperr.KindInvalidInput, err, invalidInputMsg)
	}

	var bad []string
	lookup := func(key string) null.String {
		msg, ok := raw[key]
		if !ok {
			return null.String{}
		}
		var s string
		if err := json.Unmarshal(msg, &s); err == nil {
			return null.StringFrom(s)
		}
		var v any
		if err := json.Unmarshal(msg, &v); err != nil {
			bad = append(bad, key)
			return null.String{}
		}
		switch v := v.(type) {
		case nil:
			return null.StringFrom("")
		case float64, bool:
			return null.StringFrom(string(msg))
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				if str, ok := item.(string); ok {
					parts = append(parts, str)
					continue
				}
				b, _ := json.Marshal(item)
				parts = append(parts, string(b))
			}
			return null.StringFrom(strings.Join(parts, ","))
		default:
			bad = append(bad, key)
			return null.String{}
		}
	}
	in := inputFrom(lookup)
	if len(bad) > 0 {
		return catalog.Input{}, apperr.Invalid(invalidInputMsg, bad...)
	}
	return in, nil
}

func inputFrom(get func(string) null.String) catalog.Input {
	return catalog.Input{
		GTIN:                get("gtin"),
		Name:                get("name"),
		Description:         get("description"),
		Category:            get("category"),
		Type:                get("type"),
		PackagingType:       get("packagingType"),
		TempUnits:           get("tempUnits"),
		Height:              get("height"),
		Width:               get("width"),
		Depth:               get("depth"),
		Weight:              get("weight"),
		MinTemp:             get("minTemp"),
		MaxTemp:             get("maxTemp"),
		StorageInstructions: get("storageInstructions"),
		Subscribers:         get("subscribers"),
	}
}
