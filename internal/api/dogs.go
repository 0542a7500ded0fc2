package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/vbonduro/hondadog/internal/domain"
)

func (c *Client) CreateDog(ctx context.Context, token string, d *domain.Dog) (*domain.Dog, error) {
	var out domain.Dog
	if err := c.sendJSON(ctx, "create_dog", http.MethodPost, "dogs/me", token, nil, d, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListMyDogs(ctx context.Context, token string) ([]*domain.Dog, error) {
	var out []*domain.Dog
	if err := c.getJSON(ctx, "list_my_dogs", "dogs/me", nil, token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetDog(ctx context.Context, id int64) (*domain.Dog, error) {
	var out domain.Dog
	if err := c.getJSON(ctx, "get_dog", idPath("dogs", id), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type imageResponse struct {
	ImageURL string `json:"image_url"`
}

// UploadDogImage sends a photo as the multipart field "image" and returns the
// URL the backend stored it under.
func (c *Client) UploadDogImage(ctx context.Context, token string, dogID int64, data []byte, mimeType string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="dog"`)
	h.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("upload_dog_image: failed to create part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("upload_dog_image: failed to write part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("upload_dog_image: failed to finish body: %w", err)
	}

	var out imageResponse
	err = c.do(ctx, request{
		op:          "upload_dog_image",
		method:      http.MethodPost,
		path:        idPath("dogs", dogID, "image"),
		token:       token,
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, &out)
	if err != nil {
		return "", err
	}
	return out.ImageURL, nil
}
