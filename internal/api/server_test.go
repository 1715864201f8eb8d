package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"productcatalog/internal/auth"
	"productcatalog/internal/blobstore/blobtest"
	"productcatalog/internal/catalog"
	"productcatalog/internal/db/dbtest"
	"productcatalog/internal/metrics"
	"productcatalog/internal/models"
	"productcatalog/internal/store"
	"productcatalog/internal/users"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

type testServer struct {
	t     *testing.T
	gdb   *gorm.DB
	blobs *blobtest.Memory
	h     http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zaptest.NewLogger(t)
	gdb := dbtest.Open(t)
	st := store.New(gdb)
	blobs := blobtest.New()
	tokens := auth.NewTokens("test-key", time.Hour)
	gate := auth.NewGate(tokens)
	m := metrics.New()

	srv := New(Options{
		Log:            log,
		DB:             gdb,
		Users:          users.NewService(st, tokens, log),
		Catalog:        catalog.NewService(st, blobs, gate, log, m),
		Gate:           gate,
		Metrics:        m,
		MaxUploadBytes: 1 << 10,
		ClientURL:      "http://client.test",
	})
	return &testServer{t: t, gdb: gdb, blobs: blobs, h: srv.Handler()}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) json(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return ts.do(req)
}

func (ts *testServer) multipart(method, path, token string, fields map[string]string, image []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(ts.t, w.WriteField(k, v))
	}
	if image != nil {
		fw, err := w.CreateFormFile("image", "photo.png")
		require.NoError(ts.t, err)
		_, err = fw.Write(image)
		require.NoError(ts.t, err)
	}
	require.NoError(ts.t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return ts.do(req)
}

func (ts *testServer) signup(email string) users.Session {
	rec := ts.json(http.MethodPost, "/api/users/signup", "", map[string]string{
		"name": "A", "company": "C", "email": email, "password": "secret1",
	})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	var sess users.Session
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &sess))
	return sess
}

func (ts *testServer) productCount() int64 {
	var n int64
	require.NoError(ts.t, ts.gdb.Model(&models.Product{}).Count(&n).Error)
	return n
}

func widget() map[string]string {
	return map[string]string{
		"gtin":        "00012345678905",
		"name":        "Widget",
		"description": "ten-plus characters",
		"category":    "1",
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestSignupLoginScenario(t *testing.T) {
	ts := newTestServer(t)
	sess := ts.signup("a@x.com")
	assert.Equal(t, "a@x.com", sess.Email)
	assert.NotEmpty(t, sess.Token)

	rec := ts.json(http.MethodPost, "/api/users/login", "", map[string]string{"email": "a@x.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var again users.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &again))
	assert.Equal(t, sess.UserID, again.UserID)
	assert.NotEqual(t, sess.Token, again.Token)

	rec = ts.json(http.MethodPost, "/api/users/login", "", map[string]string{"email": "a@x.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), "token")

	rec = ts.json(http.MethodPost, "/api/users/login", "", map[string]string{"email": "b@x.com", "password": "secret1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.json(http.MethodPost, "/api/users/signup", "", map[string]string{
		"name": "A", "company": "C", "email": "a@x.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "User exists already, please login instead.", decode(t, rec)["message"])

	rec = ts.json(http.MethodGet, "/api/users", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, strings.ToLower(rec.Body.String()), "password")
	assert.Len(t, decode(t, rec)["users"], 1)
}

func TestSignupValidation(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.json(http.MethodPost, "/api/users/signup", "", map[string]string{"email": "nope", "password": "1"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Invalid inputs passed, please check your data.", body["message"])
	assert.ElementsMatch(t, []any{"name", "company", "email", "password"}, body["fields"])
}

func TestCreateRequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.multipart(http.MethodPost, "/api/products", "", widget(), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.multipart(http.MethodPost, "/api/products", "garbage", widget(), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, ts.productCount())
}

func TestProductLifecycle(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup("a@x.com")

	rec := ts.multipart(http.MethodPost, "/api/products", alice.Token, widget(), pngBytes)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)["product"].(map[string]any)
	assert.Equal(t, alice.UserID, created["owner"])
	assert.Equal(t, 1, ts.blobs.Len())

	rec = ts.json(http.MethodGet, "/api/products/00012345678905", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)["product"].(map[string]any)
	assert.Equal(t, "Widget", got["name"])
	assert.EqualValues(t, 1, got["category"])
	assert.Contains(t, got["image"], "https://blobs.test/")

	rec = ts.json(http.MethodPatch, "/api/products/00012345678905", alice.Token, map[string]any{
		"name":        "Gadget",
		"subscribers": []int{3, 4},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode(t, rec)["product"].(map[string]any)
	assert.Equal(t, "Gadget", updated["name"])
	assert.Equal(t, "ten-plus characters", updated["description"])
	assert.NotNil(t, updated["datePublished"])

	rec = ts.json(http.MethodGet, "/api/products/user/"+alice.UserID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Gadget", list[0]["name"])

	rec = ts.json(http.MethodDelete, "/api/products/00012345678905", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Deleted product 00012345678905 (Gadget).", decode(t, rec)["message"])
	assert.Zero(t, ts.productCount())
	assert.Zero(t, ts.blobs.Len())

	rec = ts.json(http.MethodGet, "/api/products/00012345678905", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCrossOwnerRejected(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup("a@x.com")
	bob := ts.signup("b@x.com")

	rec := ts.multipart(http.MethodPost, "/api/products", alice.Token, widget(), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.multipart(http.MethodPatch, "/api/products/00012345678905", bob.Token, map[string]string{"name": "Mine"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "You are not authorized to modify this product.", decode(t, rec)["message"])

	rec = ts.json(http.MethodDelete, "/api/products/00012345678905", bob.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.json(http.MethodGet, "/api/products/00012345678905", "", nil)
	assert.Equal(t, "Widget", decode(t, rec)["product"].(map[string]any)["name"])
}

func TestCreateValidationAndDuplicates(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup("a@x.com")

	rec := ts.multipart(http.MethodPost, "/api/products", alice.Token, map[string]string{"gtin": "123"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.ElementsMatch(t, []any{"gtin", "name", "description"}, decode(t, rec)["fields"])

	rec = ts.multipart(http.MethodPost, "/api/products", alice.Token, widget(), nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = ts.multipart(http.MethodPost, "/api/products", alice.Token, widget(), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.EqualValues(t, 1, ts.productCount())
}

func TestUploadTooLarge(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup("a@x.com")

	big := append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{0}, 2<<10)...)
	rec := ts.multipart(http.MethodPost, "/api/products", alice.Token, widget(), big)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []any{"image"}, decode(t, rec)["fields"])
	assert.Zero(t, ts.productCount())
}

func TestDeleteUnknown(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup("a@x.com")
	rec := ts.multipart(http.MethodPost, "/api/products", alice.Token, widget(), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.json(http.MethodDelete, "/api/products/99999999999999", alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.EqualValues(t, 1, ts.productCount())
}

func TestProductsByUnknownUser(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.json(http.MethodGet, "/api/products/user/ghost", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.json(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Could not find this route.", decode(t, rec)["message"])
}

func TestHealthMetricsAndHeaders(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.json(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = ts.json(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/health"`)

	req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	req.Header.Set("Origin", "http://client.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = ts.do(req)
	assert.Equal(t, "http://client.test", rec.Header().Get("Access-Control-Allow-Origin"))
}
