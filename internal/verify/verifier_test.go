package verify

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/raine/ciftci-pazari-bot/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockInferencer implements Inferencer for testing
type mockInferencer struct {
	mock.Mock
}

func (m *mockInferencer) Infer(ctx context.Context, prompt string, image *ImagePayload) (*InferenceResponse, error) {
	args := m.Called(ctx, prompt, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*InferenceResponse), args.Error(1)
}

var testConfig = Config{APIKey: "test-key", BaseURL: "http://127.0.0.1:1"}

func dataURIRequest() Request {
	return Request{
		ProductName:  "Domates",
		Description:  "Organik salkım domates",
		CategoryName: "Sebze",
		ImageRef:     "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngMagic),
	}
}

func TestVerify_NotConfigured(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no network request expected without api key")
	}))
	defer ts.Close()

	inferencer := new(mockInferencer)
	v := NewWithInferencer(Config{BaseURL: ts.URL}, inferencer)

	result := v.Verify(context.Background(), Request{ImageRef: "a.jpg"})
	assert.Equal(t, Result{
		IsValid:      false,
		Confidence:   0,
		Reason:       "API anahtarı yapılandırılmamış",
		AutoApproved: false,
	}, result)
	inferencer.AssertNotCalled(t, "Infer", mock.Anything, mock.Anything, mock.Anything)

	_, err := v.Check(context.Background(), Request{ImageRef: "a.jpg"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNew_WithoutAPIKey(t *testing.T) {
	v, err := New(context.Background(), Config{})
	require.NoError(t, err)
	assert.False(t, v.Configured())
	assert.Equal(t, "API anahtarı yapılandırılmamış", v.Verify(context.Background(), dataURIRequest()).Reason)
}

func TestVerify_FetchFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	inferencer := new(mockInferencer)
	v := NewWithInferencer(Config{APIKey: "k", BaseURL: url}, inferencer)

	result, err := v.Check(context.Background(), Request{ProductName: "Elma", ImageRef: "elma.jpg"})
	var fetchErr *ImageFetchError
	require.ErrorAs(t, err, &fetchErr)

	assert.False(t, result.IsValid)
	assert.Equal(t, 0.0, result.Confidence)
	assert.False(t, result.AutoApproved)
	assert.Contains(t, result.Reason, fetchErr.Err.Error())
	inferencer.AssertNotCalled(t, "Infer", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_Success(t *testing.T) {
	req := dataURIRequest()
	inferencer := new(mockInferencer)
	inferencer.On("Infer", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "Domates") &&
			strings.Contains(prompt, "Organik salkım domates") &&
			strings.Contains(prompt, "Sebze")
	}), mock.MatchedBy(func(img *ImagePayload) bool {
		return img.MIMEType == "image/png"
	})).Return(&InferenceResponse{
		Text: `{"isValid":true,"confidence":0.9,"reason":"ok","autoApproved":false}`,
	}, nil).Once()

	v := NewWithInferencer(testConfig, inferencer)
	result := v.Verify(context.Background(), req)

	assert.Equal(t, Result{IsValid: true, Confidence: 0.9, Reason: "ok", AutoApproved: true}, result)
	inferencer.AssertExpectations(t)
}

func TestVerify_InferenceError(t *testing.T) {
	inferencer := new(mockInferencer)
	inferencer.On("Infer", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("quota exceeded")).Once()

	v := NewWithInferencer(testConfig, inferencer)
	result, err := v.Check(context.Background(), dataURIRequest())

	var infErr *InferenceError
	require.ErrorAs(t, err, &infErr)
	assert.False(t, result.IsValid)
	assert.False(t, result.AutoApproved)
	assert.Contains(t, result.Reason, "quota exceeded")
}

func TestVerify_ParseFailure(t *testing.T) {
	inferencer := new(mockInferencer)
	inferencer.On("Infer", mock.Anything, mock.Anything, mock.Anything).
		Return(&InferenceResponse{Text: "bilmiyorum"}, nil).Once()

	v := NewWithInferencer(testConfig, inferencer)
	result := v.Verify(context.Background(), dataURIRequest())

	assert.False(t, result.IsValid)
	assert.Equal(t, 0.0, result.Confidence)
	assert.False(t, result.AutoApproved)
	assert.Contains(t, result.Reason, "yanıt ayrıştırılamadı")
}

func TestVerify_UsesCache(t *testing.T) {
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	inferencer := new(mockInferencer)
	inferencer.On("Infer", mock.Anything, mock.Anything, mock.Anything).
		Return(&InferenceResponse{Text: `{"isValid":true,"confidence":0.95,"reason":"bal"}`}, nil).Once()

	v := NewWithInferencer(testConfig, inferencer).WithCache(store)

	first := v.Verify(context.Background(), dataURIRequest())
	second := v.Verify(context.Background(), dataURIRequest())

	assert.Equal(t, first, second)
	assert.True(t, second.AutoApproved)
	inferencer.AssertNumberOfCalls(t, "Infer", 1)
}

func TestVerify_FailuresAreNotCached(t *testing.T) {
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	inferencer := new(mockInferencer)
	inferencer.On("Infer", mock.Anything, mock.Anything, mock.Anything).
		Return(&InferenceResponse{Text: "no json"}, nil).Twice()

	v := NewWithInferencer(testConfig, inferencer).WithCache(store)
	v.Verify(context.Background(), dataURIRequest())
	v.Verify(context.Background(), dataURIRequest())

	inferencer.AssertNumberOfCalls(t, "Infer", 2)
}

func TestCacheKey_DependsOnMetadata(t *testing.T) {
	img := &ImagePayload{Data: "AAAA", MIMEType: "image/png"}
	a := cacheKey(Request{ProductName: "Elma"}, img)
	b := cacheKey(Request{ProductName: "Armut"}, img)
	c := cacheKey(Request{ProductName: "El", Description: "ma"}, img)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a, cacheKey(Request{ProductName: "Elma"}, img))
}

func TestBuildPrompt_FillsMissingFields(t *testing.T) {
	prompt := BuildPrompt(Request{ProductName: "Ceviz"})
	assert.Contains(t, prompt, "Ürün adı: Ceviz")
	assert.Contains(t, prompt, "Açıklama: (belirtilmemiş)")
	assert.Contains(t, prompt, "REDDET")
}
