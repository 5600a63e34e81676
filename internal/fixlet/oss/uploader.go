package oss

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"fixlet/pkg/errors"
	"fixlet/pkg/logger"
)

// signatureMismatchMarker appears in the storage service's 403 body when the
// Content-Type header was folded into the presigned signature. Retrying once
// without the header is the only automatic retry in the pipeline.
const signatureMismatchMarker = "SignatureDoesNotMatch"

// Uploader PUTs file bytes to a presigned object-storage URL.
type Uploader struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *logger.Logger
}

func NewUploader(timeout time.Duration) *Uploader {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Uploader{
		httpClient: &http.Client{},
		timeout:    timeout,
		logger:     logger.WithField("component", "oss-uploader"),
	}
}

// NormalizeURL decodes percent-escapes in the path component of a presigned
// URL. Storage services sign the decoded object key, so replaying the URL
// with an encoded path segment triggers a signature mismatch. The query
// string carries the signature and is preserved byte-for-byte.
func NormalizeURL(raw string) string {
	head := raw
	query := ""
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		head, query = raw[:i], raw[i:]
	}

	pathStart := 0
	if i := strings.Index(head, "://"); i >= 0 {
		j := strings.IndexByte(head[i+3:], '/')
		if j < 0 {
			return raw
		}
		pathStart = i + 3 + j
	}

	decoded, err := url.PathUnescape(head[pathStart:])
	if err != nil {
		return raw
	}

	return head[:pathStart] + decoded + query
}

// Put transfers the file to the presigned destination. On a 403 response
// whose body contains the signature-mismatch marker it retries exactly once
// with the Content-Type header omitted; any other failure is terminal.
func (u *Uploader) Put(ctx context.Context, uploadURL, filePath, contentType string, sizeBytes int64) error {
	target := NormalizeURL(uploadURL)

	status, body, err := u.attempt(ctx, target, filePath, contentType, sizeBytes, true)
	if err != nil {
		return err
	}
	if status >= 200 && status <= 299 {
		return nil
	}

	if status == http.StatusForbidden && strings.Contains(body, signatureMismatchMarker) {
		u.logger.Warn("signature mismatch on upload, retrying without content type")
		status, body, err = u.attempt(ctx, target, filePath, contentType, sizeBytes, false)
		if err != nil {
			return err
		}
		if status >= 200 && status <= 299 {
			return nil
		}
	}

	return errors.New(errors.CodeOSSPutFailed,
		"object storage rejected the upload").
		WithHTTP(status, body)
}

// attempt performs one PUT. The file is reopened per attempt since the body
// is consumed by the request.
func (u *Uploader) attempt(ctx context.Context, target, filePath, contentType string, sizeBytes int64, withContentType bool) (int, string, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	f, err := os.Open(filePath)
	if err != nil {
		return 0, "", fmt.Errorf("failed to open file for upload: %w", err)
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, f)
	if err != nil {
		return 0, "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.ContentLength = sizeBytes
	req.Header.Set("x-oss-object-acl", "private")
	if withContentType {
		req.Header.Set("Content-Type", contentType)
	}

	u.logger.Debug("uploading object", "sizeBytes", sizeBytes, "withContentType", withContentType)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return 0, "", errors.Wrap(errors.CodeOSSPutFailed, err, "upload transport failed")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body), nil
}
