package backend

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
)

// UploadFile sends one file to the file service and returns its public URL.
func (c *Client) UploadFile(ctx context.Context, filename string, content io.Reader) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/files/upload"), body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var result UploadResult
	if err := c.send(req, "/files/upload", &result); err != nil {
		return "", err
	}
	if result.URL == "" {
		return "", errors.New("backend: upload returned no url")
	}
	return result.URL, nil
}
