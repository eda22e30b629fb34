package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"Curbside/internal/core/media"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Upload(ctx context.Context, name, contentType string, body io.Reader, size int64) (*media.UploadResponse, error) {
	args := m.Called(ctx, name, contentType, body, size)
	if r, ok := args.Get(0).(*media.UploadResponse); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockService) Open(ctx context.Context, id int64) (*url.URL, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*url.URL); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockService) IsPublicObject(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockService) RemoveObjects(ctx context.Context, keys []string) {
	m.Called(ctx, keys)
}

func (m *mockService) PurgeOrphans(ctx context.Context, maxAge time.Duration) (int, error) {
	args := m.Called(ctx, maxAge)
	return args.Int(0), args.Error(1)
}

func multipartBody(t *testing.T, name, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHandleUpload(t *testing.T) {
	svc := new(mockService)
	h := NewUploadHandler(svc, 1024)
	svc.On("Upload", mock.Anything, "couch.png", "image/png", mock.Anything, int64(4)).
		Return(&media.UploadResponse{GUID: "g", ID: 1, FileSize: 4}, nil)

	body, ct := multipartBody(t, "couch.png", "image/png", []byte("\x89PNG"))
	req := httptest.NewRequest(http.MethodPost, "/media", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	h.HandleUpload(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"guid":"g","id":1,"fileSize":4}`, rec.Body.String())
}

func TestHandleUpload_Unsupported(t *testing.T) {
	svc := new(mockService)
	h := NewUploadHandler(svc, 1024)
	svc.On("Upload", mock.Anything, mock.Anything, "text/plain", mock.Anything, mock.Anything).
		Return(nil, media.ErrUnsupportedType)

	body, ct := multipartBody(t, "x.txt", "text/plain", []byte("hi"))
	req := httptest.NewRequest(http.MethodPost, "/media", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	h.HandleUpload(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestHandleUpload_TooLarge(t *testing.T) {
	h := NewUploadHandler(new(mockService), 16)
	body, ct := multipartBody(t, "big.png", "image/png", bytes.Repeat([]byte{1}, 2*multipartOverhead))
	req := httptest.NewRequest(http.MethodPost, "/media", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	h.HandleUpload(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHandleUpload_NotMultipart(t *testing.T) {
	h := NewUploadHandler(new(mockService), 16)
	rec := httptest.NewRecorder()
	h.HandleUpload(rec, httptest.NewRequest(http.MethodPost, "/media", bytes.NewBufferString("raw")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func getRequest(id string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/media/"+id, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestHandleGet_Redirects(t *testing.T) {
	svc := new(mockService)
	h := NewGetHandler(svc)
	target, _ := url.Parse("https://objects.example.com/media/k?sig=1")
	svc.On("Open", mock.Anything, int64(5)).Return(target, nil)

	rec := httptest.NewRecorder()
	h.HandleGet(rec, getRequest("5"))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, target.String(), rec.Header().Get("Location"))
}

func TestHandleGet_PrivateIsNotFound(t *testing.T) {
	svc := new(mockService)
	h := NewGetHandler(svc)
	svc.On("Open", mock.Anything, int64(5)).Return(nil, media.ErrNotFound)

	rec := httptest.NewRecorder()
	h.HandleGet(rec, getRequest("5"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGet_Internal(t *testing.T) {
	svc := new(mockService)
	h := NewGetHandler(svc)
	svc.On("Open", mock.Anything, int64(5)).Return(nil, errors.New("s3 down"))

	rec := httptest.NewRecorder()
	h.HandleGet(rec, getRequest("5"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "s3 down")
}
