package web

import (
	"bytes"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowedImageMIME(t *testing.T) {
	tests := []struct {
		name         string
		data         []byte
		wantMIME     string
		wantDetected bool
	}{
		{
			name:         "JPEG",
			data:         []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10},
			wantMIME:     "image/jpeg",
			wantDetected: true,
		},
		{
			name:         "PNG",
			data:         []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00},
			wantMIME:     "image/png",
			wantDetected: true,
		},
		{
			name:         "GIF",
			data:         []byte("GIF89a"),
			wantMIME:     "image/gif",
			wantDetected: true,
		},
		{
			name:         "WebP",
			data:         append([]byte("RIFF\x00\x00\x00\x00WEBP"), make([]byte, 10)...),
			wantMIME:     "image/webp",
			wantDetected: true,
		},
		{
			name:         "RIFF but not WebP",
			data:         append([]byte("RIFF\x00\x00\x00\x00WAVE"), make([]byte, 10)...),
			wantMIME:     "",
			wantDetected: false,
		},
		{
			name:         "PDF disguised as image",
			data:         []byte("%PDF-1.4 malicious content"),
			wantMIME:     "",
			wantDetected: false,
		},
		{
			name:         "empty",
			data:         []byte{},
			wantMIME:     "",
			wantDetected: false,
		},
		{
			name:         "too short for WebP check",
			data:         []byte("RIFF"),
			wantMIME:     "",
			wantDetected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotMIME, gotDetected := allowedImageMIME(tt.data)
			if gotDetected != tt.wantDetected {
				t.Errorf("allowedImageMIME() detected = %v, want %v", gotDetected, tt.wantDetected)
			}
			if gotMIME != tt.wantMIME {
				t.Errorf("allowedImageMIME() mimeType = %q, want %q", gotMIME, tt.wantMIME)
			}
		})
	}
}

// minimalJPEG is 512 bytes with the JPEG magic bytes header followed by zeros.
var minimalJPEG = func() []byte {
	b := make([]byte, 512)
	b[0] = 0xFF
	b[1] = 0xD8
	b[2] = 0xFF
	b[3] = 0xE0
	return b
}()

func newPhotoRequest(t *testing.T, fields map[string]string, photo []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if photo != nil {
		fw, err := mw.CreateFormFile("photo", "dog.jpg")
		require.NoError(t, err)
		_, err = fw.Write(photo)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/setting/dog", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestReadPhoto(t *testing.T) {
	t.Run("valid jpeg", func(t *testing.T) {
		req := newPhotoRequest(t, map[string]string{"name": "ポチ"}, minimalJPEG)
		photo, err := readPhoto(req, "photo", slog.Default())
		require.NoError(t, err)
		require.NotNil(t, photo)
		assert.Equal(t, "image/jpeg", photo.MimeType)
		assert.Len(t, photo.Data, len(minimalJPEG))
		assert.Equal(t, "ポチ", req.PostForm.Get("name"))
	})

	t.Run("no file", func(t *testing.T) {
		req := newPhotoRequest(t, map[string]string{"name": "ポチ"}, nil)
		photo, err := readPhoto(req, "photo", slog.Default())
		require.NoError(t, err)
		assert.Nil(t, photo)
		assert.Equal(t, "ポチ", req.PostForm.Get("name"))
	})

	t.Run("empty file", func(t *testing.T) {
		req := newPhotoRequest(t, nil, []byte{})
		photo, err := readPhoto(req, "photo", slog.Default())
		require.NoError(t, err)
		assert.Nil(t, photo)
	})

	t.Run("unsupported type", func(t *testing.T) {
		req := newPhotoRequest(t, nil, []byte("%PDF-1.4 not an image"))
		_, err := readPhoto(req, "photo", slog.Default())
		var perr *photoError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, "JPEG・PNG・GIF・WebP形式の画像を選択してください", perr.msg)
	})

	t.Run("too large", func(t *testing.T) {
		big := append([]byte{}, minimalJPEG...)
		big = append(big, make([]byte, maxPhotoSize)...)
		req := newPhotoRequest(t, nil, big)
		_, err := readPhoto(req, "photo", slog.Default())
		var perr *photoError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, "画像は10MB以下にしてください", perr.msg)
	})

	t.Run("body over the upload cap", func(t *testing.T) {
		big := append([]byte{}, minimalJPEG...)
		big = append(big, make([]byte, maxUploadBody)...)
		req := newPhotoRequest(t, nil, big)
		req.Body = http.MaxBytesReader(httptest.NewRecorder(), req.Body, maxUploadBody)
		_, err := readPhoto(req, "photo", slog.Default())
		var perr *photoError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, "画像は10MB以下にしてください", perr.msg)
	})

	t.Run("urlencoded form", func(t *testing.T) {
		form := url.Values{"name": {"ポチ"}}
		req := httptest.NewRequest(http.MethodPost, "/setting/dog", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		photo, err := readPhoto(req, "photo", slog.Default())
		require.NoError(t, err)
		assert.Nil(t, photo)
		assert.Equal(t, "ポチ", req.PostForm.Get("name"))
	})
}
