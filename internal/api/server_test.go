package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/raine/ciftci-pazari-bot/internal/storage"
	"github.com/raine/ciftci-pazari-bot/internal/verify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type verifierMock struct {
	mock.Mock
}

func (m *verifierMock) Check(ctx context.Context, req verify.Request) (verify.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(verify.Result), args.Error(1)
}

func (m *verifierMock) Configured() bool {
	return m.Called().Bool(0)
}

type notifierMock struct {
	mock.Mock
}

func (m *notifierMock) NotifyProductReviewed(product *storage.Product) {
	m.Called(product)
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func setup(t *testing.T, verifier Verifier) (*storage.SQLiteStore, *Server) {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, NewServer(verifier, store)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	verifier := new(verifierMock)
	verifier.On("Configured").Return(true)
	_, s := setup(t, verifier)

	w := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","verification":true}`, w.Body.String())
}

func TestVerify_ReturnsResult(t *testing.T) {
	verifier := new(verifierMock)
	verifier.On("Check", mock.Anything, verify.Request{
		ProductName:  "Domates",
		Description:  "Organik",
		CategoryName: "Sebze",
		ImageRef:     "domates.jpg",
	}).Return(verify.Result{IsValid: true, Confidence: 0.9, Reason: "ok", AutoApproved: true}, nil).Once()
	_, s := setup(t, verifier)

	w := do(t, s, http.MethodPost, "/api/products/verify",
		`{"productName":"Domates","description":"Organik","categoryName":"Sebze","imageRef":"domates.jpg"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"isValid":true,"confidence":0.9,"reason":"ok","autoApproved":true}`, w.Body.String())
	verifier.AssertExpectations(t)
}

func TestVerify_FailureIsStillOK(t *testing.T) {
	verifier := new(verifierMock)
	rejection := verify.Rejection("görsel alınamadı: download failed: status 404")
	verifier.On("Check", mock.Anything, mock.Anything).
		Return(rejection, &verify.ImageFetchError{Ref: "x.jpg", Err: errors.New("download failed: status 404")}).Once()
	_, s := setup(t, verifier)

	w := do(t, s, http.MethodPost, "/api/products/verify", `{"productName":"Elma","imageRef":"x.jpg"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	got := decode[verify.Result](t, w)
	assert.Equal(t, rejection, got)
}

func TestVerify_WithoutAPIKey(t *testing.T) {
	v, err := verify.New(context.Background(), verify.Config{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	_, s := setup(t, v)

	w := do(t, s, http.MethodPost, "/api/products/verify", `{"productName":"Elma","imageRef":"elma.jpg"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"isValid":false,"confidence":0,"reason":"API anahtarı yapılandırılmamış","autoApproved":false}`,
		w.Body.String())
}

func TestVerify_BadJSON(t *testing.T) {
	verifier := new(verifierMock)
	_, s := setup(t, verifier)

	w := do(t, s, http.MethodPost, "/api/products/verify", `{"productName":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[errorResponse](t, w).Error, "invalid request body")
	verifier.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
}

func createProduct(t *testing.T, store *storage.SQLiteStore, p storage.Product) *storage.Product {
	t.Helper()
	created, err := store.CreateProduct(&p)
	require.NoError(t, err)
	return created
}

func TestList_DefaultsToPending(t *testing.T) {
	store, s := setup(t, new(verifierMock))
	pending := createProduct(t, store, storage.Product{Name: "Ceviz", ImageRef: "ceviz.jpg"})
	createProduct(t, store, storage.Product{Name: "Bal", Status: storage.StatusApproved})
	createProduct(t, store, storage.Product{Name: "Foto", ImageRef: "data:image/jpeg;base64,/9j/4A=="})

	w := do(t, s, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, w.Code)

	products := decode[[]ProductResponse](t, w)
	require.Len(t, products, 2)
	assert.Equal(t, pending.ID, products[0].ID)
	assert.Equal(t, "ceviz.jpg", products[0].ImageRef)
	assert.Equal(t, "pending", products[0].Status)
	assert.Empty(t, products[1].ImageRef)
}

func TestList_ByStatusAndLimit(t *testing.T) {
	store, s := setup(t, new(verifierMock))
	createProduct(t, store, storage.Product{Name: "Bal", Status: storage.StatusApproved})
	createProduct(t, store, storage.Product{Name: "Süt", Status: storage.StatusApproved})

	w := do(t, s, http.MethodGet, "/api/products?status=approved&limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]ProductResponse](t, w), 1)
}

func TestList_InvalidParams(t *testing.T) {
	_, s := setup(t, new(verifierMock))

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/products?status=deleted", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/products?limit=abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/products?limit=0", "").Code)
}

func TestGetProduct(t *testing.T) {
	store, s := setup(t, new(verifierMock))
	p := createProduct(t, store, storage.Product{Name: "Zeytin", Category: "Zeytin ve Zeytinyağı"})

	w := do(t, s, http.MethodGet, "/api/products/"+p.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Zeytin", decode[ProductResponse](t, w).Name)

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/products/missing", "").Code)
}

func TestApprove(t *testing.T) {
	store, s := setup(t, new(verifierMock))
	p := createProduct(t, store, storage.Product{Name: "Ceviz"})

	w := do(t, s, http.MethodPost, "/api/products/"+p.ID+"/approve", `{"reviewedBy":7}`)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[ProductResponse](t, w)
	assert.Equal(t, "approved", resp.Status)
	assert.Equal(t, int64(7), resp.ReviewedBy)
	assert.NotNil(t, resp.ReviewedAt)

	got, err := store.GetProduct(p.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusApproved, got.Status)
}

func TestReject_WithoutBody(t *testing.T) {
	store, s := setup(t, new(verifierMock))
	p := createProduct(t, store, storage.Product{Name: "Ceviz"})

	w := do(t, s, http.MethodPost, "/api/products/"+p.ID+"/reject", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rejected", decode[ProductResponse](t, w).Status)
}

func TestReview_UnknownProduct(t *testing.T) {
	_, s := setup(t, new(verifierMock))

	w := do(t, s, http.MethodPost, "/api/products/nope/approve", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "product not found", decode[errorResponse](t, w).Error)
}

func TestReview_BadJSON(t *testing.T) {
	store, s := setup(t, new(verifierMock))
	p := createProduct(t, store, storage.Product{Name: "Ceviz"})

	w := do(t, s, http.MethodPost, "/api/products/"+p.ID+"/approve", `{"reviewedBy":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReview_NotifiesProducer(t *testing.T) {
	store, s := setup(t, new(verifierMock))
	p := createProduct(t, store, storage.Product{ProducerID: 42, Name: "Ceviz"})

	notifier := new(notifierMock)
	notifier.On("NotifyProductReviewed", mock.MatchedBy(func(product *storage.Product) bool {
		return product.ID == p.ID && product.ProducerID == 42 && product.Status == storage.StatusRejected
	})).Once()
	s.WithNotifier(notifier)

	w := do(t, s, http.MethodPost, "/api/products/"+p.ID+"/reject", "")
	require.Equal(t, http.StatusOK, w.Code)
	notifier.AssertExpectations(t)
}

func TestReview_UnknownProductDoesNotNotify(t *testing.T) {
	_, s := setup(t, new(verifierMock))
	notifier := new(notifierMock)
	s.WithNotifier(notifier)

	w := do(t, s, http.MethodPost, "/api/products/nope/approve", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	notifier.AssertNotCalled(t, "NotifyProductReviewed", mock.Anything)
}
