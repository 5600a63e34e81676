package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixlet/pkg/config"
	"fixlet/pkg/errors"
)

var upgrader = websocket.Upgrader{}

type fakeBackend struct {
	ossURL string

	uploadURLCalls int
	putCalls       int
	repairCalls    int
	wsFrames       []string
}

// newFakeBackend wires an OSS endpoint, a control plane and a push channel
// the way the real services hang together.
func newFakeBackend(t *testing.T) (*fakeBackend, *config.Config) {
	t.Helper()
	b := &fakeBackend{}

	oss := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.putCalls++
		require.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "private", r.Header.Get("x-oss-object-acl"))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(oss.Close)
	b.ossURL = oss.URL

	controlPlane := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/file/upload-url":
			b.uploadURLCalls++
			_, _ = fmt.Fprintf(w, `{"code":0,"data":{"obj_key":"abc","url":"%s/abc?sig=test"}}`, b.ossURL)
		case "/file/repair":
			b.repairCalls++
			var req map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "abc", req["obj_key"])
			_, _ = w.Write([]byte(`{"code":0,"data":{"job_id":"job-1"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(controlPlane.Close)

	push := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/job/progress/job-1", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		for _, frame := range b.wsFrames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(push.Close)

	cfg := config.DefaultConfig
	cfg.Server.BaseURL = controlPlane.URL
	cfg.Server.WSURL = "ws" + strings.TrimPrefix(push.URL, "http")
	cfg.Quota.File = filepath.Join(t.TempDir(), "limit.json")
	cfg.Timeouts.Watchdog = 5 * time.Second

	return b, &cfg
}

func writeInputFile(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
	return path
}

func TestRunEndToEnd(t *testing.T) {
	backend, cfg := newFakeBackend(t)
	backend.wsFrames = []string{
		`{"status":"PROCESSING","progress":40}`,
		`{"status":"COMPLETED","progress":100,"result":[{"url":"https://cdn.example/abc_fixed.mp4"}]}`,
	}

	filePath := writeInputFile(t, "broken.mp4", 10*1024*1024)

	p, err := New(cfg)
	require.NoError(t, err)

	result, err := p.Run(context.Background(), Options{
		FilePath:  filePath,
		Catalogue: "video",
		Method:    "auto",
		IsAsync:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, "job-1", result.JobID)
	assert.Equal(t, "abc", result.ObjKey)
	assert.Equal(t, []string{"https://cdn.example/abc_fixed.mp4"}, result.URLs)
	assert.Equal(t, "https://cdn.example/abc_fixed.mp4", result.FirstURL)
	assert.Nil(t, result.LocalPath, "no download requested")
	assert.Contains(t, string(result.Progress), `"COMPLETED"`)

	assert.Equal(t, 1, backend.uploadURLCalls)
	assert.Equal(t, 1, backend.putCalls)
	assert.Equal(t, 1, backend.repairCalls)

	// the success payload serializes with a null local_path
	payload, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"local_path":null`)
	assert.Contains(t, string(payload), `"first_url":"https://cdn.example/abc_fixed.mp4"`)
}

func TestRunWithDownload(t *testing.T) {
	backend, cfg := newFakeBackend(t)

	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("repaired"))
	}))
	defer cdn.Close()

	backend.wsFrames = []string{
		fmt.Sprintf(`{"status":"COMPLETED","progress":100,"result":[{"url":"%s/abc_fixed.mp4"}]}`, cdn.URL),
	}

	filePath := writeInputFile(t, "broken.mp4", 1024)
	outDir := t.TempDir()

	p, err := New(cfg)
	require.NoError(t, err)

	result, err := p.Run(context.Background(), Options{
		FilePath:  filePath,
		Catalogue: "video",
		Method:    "auto",
		IsAsync:   true,
		Download:  true,
		OutputDir: outDir,
	})
	require.NoError(t, err)

	require.NotNil(t, result.LocalPath)
	data, err := os.ReadFile(*result.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "repaired", string(data))
	assert.Contains(t, filepath.Base(*result.LocalPath), "_fixed_")
}

func TestRunValidationFailureSkipsQuotaAndNetwork(t *testing.T) {
	backend, cfg := newFakeBackend(t)

	filePath := writeInputFile(t, "broken.exe", 64)

	p, err := New(cfg)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), Options{FilePath: filePath, Catalogue: "document", Method: "auto"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnsupportedExtension, errors.CodeOf(err))

	assert.Equal(t, 0, backend.uploadURLCalls, "no network call after validation failure")

	_, statErr := os.Stat(cfg.Quota.File)
	assert.True(t, os.IsNotExist(statErr), "quota untouched by a validation failure")
}

func TestRunQuotaExhaustedBlocksBeforeNetwork(t *testing.T) {
	backend, cfg := newFakeBackend(t)
	require.NoError(t, os.WriteFile(cfg.Quota.File,
		[]byte(fmt.Sprintf(`{"%s":0}`, time.Now().Format("2006-01-02"))), 0644))

	filePath := writeInputFile(t, "broken.mp4", 64)

	p, err := New(cfg)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), Options{FilePath: filePath, Catalogue: "video", Method: "auto"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeLimitExceeded, errors.CodeOf(err))
	assert.Equal(t, 0, backend.uploadURLCalls)
}

func TestRunJobErrorPropagates(t *testing.T) {
	backend, cfg := newFakeBackend(t)
	backend.wsFrames = []string{
		`{"status":"PROCESSING","progress":20}`,
		`{"status":"ERROR","progress":20}`,
	}

	filePath := writeInputFile(t, "broken.mp4", 64)

	p, err := New(cfg)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), Options{FilePath: filePath, Catalogue: "video", Method: "auto", IsAsync: true})
	require.Error(t, err)
	assert.Equal(t, errors.CodeJobError, errors.CodeOf(err))

	// quota was still consumed before the failure
	data, readErr := os.ReadFile(cfg.Quota.File)
	require.NoError(t, readErr)
	record := make(map[string]int)
	require.NoError(t, json.Unmarshal(data, &record))
	assert.Equal(t, cfg.Quota.DailyLimit-1, record[time.Now().Format("2006-01-02")])
}
