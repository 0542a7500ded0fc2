package web

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/vbonduro/hondadog/internal/service"
)

const maxPhotoSize = 10 << 20 // 10 MiB

// allowedImageTypes is the set of MIME types accepted for uploaded photos.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. WebP is detected separately because the WHATWG sniff spec (and
// therefore the stdlib) does not include a WebP signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

// photoError is a rejected upload whose message can be shown on the form.
type photoError struct {
	msg string
}

func (e *photoError) Error() string { return e.msg }

// readPhoto parses a multipart form and returns the optional image in field.
// A missing file yields nil, nil. r.PostForm is populated either way. The
// body is expected to be capped already by limitUploads.
func readPhoto(r *http.Request, field string, logger *slog.Logger) (*service.Photo, error) {
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = r.ParseForm()
			return nil, &photoError{msg: "画像は10MB以下にしてください"}
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			return nil, err
		}
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	file, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closeWithLog(file, "upload file", logger)

	if hdr.Size > maxPhotoSize {
		return nil, &photoError{msg: "画像は10MB以下にしてください"}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	mimeType, ok := allowedImageMIME(data)
	if !ok {
		return nil, &photoError{msg: "JPEG・PNG・GIF・WebP形式の画像を選択してください"}
	}
	return &service.Photo{Data: data, MimeType: mimeType}, nil
}

// closeWithLog closes c and logs any error. Intended for use in defer.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("close failed", "resource", label, "error", err)
	}
}
