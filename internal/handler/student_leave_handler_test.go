package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/acadflow/acadflow-api/internal/service"
	"github.com/acadflow/acadflow-api/pkg/config"
	"github.com/acadflow/acadflow-api/pkg/storage"
)

func newUploadHandler(t *testing.T, uploads config.UploadsConfig) (*StudentLeaveHandler, *storage.SignedURLSigner, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	svc := service.NewStudentLeaveService(nil, store, signer, nil, nil, nil)
	return NewStudentLeaveHandler(svc, uploads), signer, dir
}

func uploadRequest(t *testing.T, token string, body []byte, contentType string) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/documents?token="+token, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.Request = req
	return w, c
}

func TestStudentLeaveHandlerUploadRejectsOversizedBody(t *testing.T) {
	handler, signer, dir := newUploadHandler(t, config.UploadsConfig{MaxFileSizeBytes: 1024})
	token, _, err := signer.Generate("docs/leave-1.pdf", storage.CapabilityWrite)
	require.NoError(t, err)

	w, c := uploadRequest(t, token, make([]byte, 1025), "application/pdf")
	handler.UploadDocument(c)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	_, statErr := os.Stat(filepath.Join(dir, "docs", "leave-1.pdf"))
	require.True(t, os.IsNotExist(statErr))
}

func TestStudentLeaveHandlerUploadStoresFullBodyAtLimit(t *testing.T) {
	handler, signer, dir := newUploadHandler(t, config.UploadsConfig{MaxFileSizeBytes: 1024})
	token, _, err := signer.Generate("docs/leave-2.pdf", storage.CapabilityWrite)
	require.NoError(t, err)

	w, c := uploadRequest(t, token, make([]byte, 1024), "application/pdf")
	handler.UploadDocument(c)

	require.Equal(t, http.StatusOK, w.Code)
	info, err := os.Stat(filepath.Join(dir, "docs", "leave-2.pdf"))
	require.NoError(t, err)
	require.Equal(t, int64(1024), info.Size())
}

func TestStudentLeaveHandlerUploadEnforcesAllowedTypes(t *testing.T) {
	handler, signer, _ := newUploadHandler(t, config.UploadsConfig{
		MaxFileSizeBytes: 1024,
		AllowedMIMEs:     []string{"application/pdf", "image/png"},
	})
	token, _, err := signer.Generate("docs/leave-3.bin", storage.CapabilityWrite)
	require.NoError(t, err)

	w, c := uploadRequest(t, token, []byte("payload"), "application/zip")
	handler.UploadDocument(c)
	require.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w, c = uploadRequest(t, token, []byte("payload"), "image/png")
	handler.UploadDocument(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestStudentLeaveHandlerUploadRequiresToken(t *testing.T) {
	handler, _, _ := newUploadHandler(t, config.UploadsConfig{MaxFileSizeBytes: 1024})

	w, c := uploadRequest(t, "", []byte("payload"), "application/pdf")
	handler.UploadDocument(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
