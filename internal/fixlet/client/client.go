package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"fixlet/internal/fixlet/domain"
	"fixlet/pkg/errors"
	"fixlet/pkg/logger"
)

// Client talks to the control plane: it negotiates one-time upload tickets
// and registers repair jobs. It performs no retries; each call is bounded by
// its own timeout.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	negotiateExpiry time.Duration
	submitExpiry    time.Duration
	logger          *logger.Logger
}

type Options struct {
	BaseURL          string
	NegotiateTimeout time.Duration
	SubmitTimeout    time.Duration
}

func New(opts Options) *Client {
	if opts.NegotiateTimeout <= 0 {
		opts.NegotiateTimeout = 60 * time.Second
	}
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = 60 * time.Second
	}

	return &Client{
		baseURL:         opts.BaseURL,
		httpClient:      &http.Client{},
		negotiateExpiry: opts.NegotiateTimeout,
		submitExpiry:    opts.SubmitTimeout,
		logger:          logger.WithField("component", "control-plane-client"),
	}
}

type envelope struct {
	Code json.Number     `json:"code"`
	Data json.RawMessage `json:"data"`
}

type uploadURLData struct {
	ObjKey string `json:"obj_key"`
	URL    string `json:"url"`
}

type repairData struct {
	JobID string `json:"job_id"`
}

// NegotiateUpload asks for a one-time object key and presigned upload URL.
func (c *Client) NegotiateUpload(ctx context.Context, file *domain.FileDescriptor, catalogue string) (*domain.UploadTicket, error) {
	ctx, cancel := context.WithTimeout(ctx, c.negotiateExpiry)
	defer cancel()

	q := url.Values{}
	q.Set("file_name", file.Name)
	q.Set("content_length", strconv.FormatInt(file.SizeBytes, 10))
	q.Set("content_type", file.ContentType)
	q.Set("catalogue", catalogue)

	endpoint := c.baseURL + "/file/upload-url?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload-url request: %w", err)
	}

	c.logger.Debug("negotiating upload destination", "fileName", file.Name, "catalogue", catalogue)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload-url request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.New(errors.CodeUploadURLFailed,
			"control plane refused the upload-url request").
			WithHTTP(resp.StatusCode, string(body))
	}

	var env envelope
	var data uploadURLData
	if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 {
		_ = json.Unmarshal(env.Data, &data)
	}
	if data.ObjKey == "" || data.URL == "" {
		return nil, errors.New(errors.CodeUploadURLFailed,
			"upload-url response missing object key or URL").
			WithHTTP(resp.StatusCode, string(body))
	}

	c.logger.Info("upload destination granted", "objKey", data.ObjKey)
	return &domain.UploadTicket{ObjKey: data.ObjKey, URL: data.URL}, nil
}

// SubmitRepair registers a repair job for an uploaded object and returns its
// job identifier.
func (c *Client) SubmitRepair(ctx context.Context, objKey, method string, isAsync bool) (*domain.RepairJob, error) {
	ctx, cancel := context.WithTimeout(ctx, c.submitExpiry)
	defer cancel()

	payload, err := json.Marshal(map[string]interface{}{
		"obj_key":  objKey,
		"method":   method,
		"is_async": isAsync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode repair request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/file/repair", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build repair request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("submitting repair job", "objKey", objKey, "method", method, "isAsync", isAsync)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("repair request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.New(errors.CodeRepairCreateFailed,
			"control plane refused the repair request").
			WithHTTP(resp.StatusCode, string(body))
	}

	var env envelope
	var data repairData
	if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 {
		_ = json.Unmarshal(env.Data, &data)
	}
	if data.JobID == "" {
		return nil, errors.New(errors.CodeRepairCreateFailed,
			"repair response missing job identifier").
			WithHTTP(resp.StatusCode, string(body))
	}

	c.logger.Info("repair job created", "jobId", data.JobID)
	return &domain.RepairJob{
		JobID:   data.JobID,
		ObjKey:  objKey,
		Method:  method,
		IsAsync: isAsync,
	}, nil
}
