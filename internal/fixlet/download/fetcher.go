package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"fixlet/pkg/errors"
	"fixlet/pkg/logger"
)

// Fetcher streams a produced artifact back to local disk. The body is copied
// straight to the destination file so memory use stays bounded regardless of
// artifact size.
type Fetcher struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *logger.Logger
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	return &Fetcher{
		httpClient: &http.Client{},
		timeout:    timeout,
		logger:     logger.WithField("component", "result-fetcher"),
	}
}

// OutputPath derives a destination name from the source file: the original
// name with a repair marker and a short random suffix, so repeated runs and
// the source itself are never overwritten.
func OutputPath(sourcePath, outputDir string) string {
	base := filepath.Base(sourcePath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	suffix := uuid.NewString()[:8]

	if outputDir == "" {
		outputDir = filepath.Dir(sourcePath)
	}
	return filepath.Join(outputDir, fmt.Sprintf("%s_fixed_%s%s", stem, suffix, ext))
}

// Fetch downloads the artifact to destPath. Any non-2xx response or an empty
// body fails with DOWNLOAD_FAILED.
func (f *Fetcher) Fetch(ctx context.Context, artifactURL, destPath string) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artifactURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build download request: %w", err)
	}

	f.logger.Debug("downloading artifact", "dest", destPath)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(errors.CodeDownloadFailed, err, "download transport failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.New(errors.CodeDownloadFailed,
			"artifact server refused the download").
			WithHTTP(resp.StatusCode, string(body))
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		os.Remove(destPath)
		return errors.Wrap(errors.CodeDownloadFailed, err, "artifact stream interrupted")
	}
	if written == 0 {
		os.Remove(destPath)
		return errors.New(errors.CodeDownloadFailed, "artifact body was empty")
	}

	f.logger.Info("artifact downloaded", "dest", destPath, "sizeBytes", written)
	return nil
}
