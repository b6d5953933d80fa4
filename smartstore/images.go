package smartstore

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
)

type uploadResponse struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

// Upload downloads each source image and re-hosts it on the SmartStore image
// service in batches, returning the hosted URLs in input order.
func (c *Client) Upload(ctx context.Context, urls []string) ([]string, error) {
	if len(urls) == 0 {
		return nil, ErrNoImages
	}

	hosted := make([]string, 0, len(urls))
	for start := 0; start < len(urls); start += c.cfg.UploadBatch {
		end := min(start+c.cfg.UploadBatch, len(urls))
		batch, err := c.uploadBatch(ctx, urls[start:end])
		if err != nil {
			return nil, err
		}
		hosted = append(hosted, batch...)
	}

	c.logger.Info("smartstore: images uploaded", "count", len(hosted))
	return hosted, nil
}

func (c *Client) uploadBatch(ctx context.Context, urls []string) ([]string, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	for i, u := range urls {
		res, err := c.fetch.R().SetContext(ctx).Get(u)
		if err != nil {
			return nil, fmt.Errorf("smartstore: fetch image %s: %w", u, err)
		}
		if res.IsError() {
			return nil, fmt.Errorf("smartstore: fetch image %s: status %d", u, res.StatusCode())
		}
		ct := res.Header().Get("Content-Type")
		if ct == "" {
			ct = "image/jpeg"
		}
		req.SetMultipartField("imageFiles", imageName(u, i), ct, bytes.NewReader(res.Body()))
	}

	var out uploadResponse
	apiErr := &APIError{}
	res, err := req.
		SetResult(&out).
		SetError(apiErr).
		ForceContentType("application/json").
		Post(imageUploadPath)
	if err != nil {
		return nil, fmt.Errorf("smartstore: upload: %w", err)
	}
	if res.IsError() {
		apiErr.Status = res.StatusCode()
		return nil, apiErr
	}
	if len(out.Images) != len(urls) {
		return nil, fmt.Errorf("%w: sent %d, got %d", ErrBadUpload, len(urls), len(out.Images))
	}

	hosted := make([]string, len(out.Images))
	for i, img := range out.Images {
		hosted[i] = img.URL
	}
	return hosted, nil
}

func imageName(u string, i int) string {
	base := path.Base(strings.SplitN(u, "?", 2)[0])
	if base == "" || base == "." || base == "/" {
		return fmt.Sprintf("image_%d.jpg", i)
	}
	return base
}
