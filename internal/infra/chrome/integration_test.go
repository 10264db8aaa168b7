//go:build integration

package chrome

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"html2pdf-api/internal/config"
	"html2pdf-api/internal/domain"
)

func integrationConfig(t *testing.T, engine string) config.Config {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("process accounting reads /proc")
	}
	bin := os.Getenv("CHROME_BIN")
	if bin == "" {
		for _, name := range []string{"chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
			if p, err := exec.LookPath(name); err == nil {
				bin = p
				break
			}
		}
	}
	if bin == "" {
		t.Skip("no Chrome binary found; set CHROME_BIN")
	}

	cfg := config.Default()
	cfg.PDF.Engine = engine
	cfg.PDF.ChromePath = bin
	cfg.PDF.ChromeNoSandbox = true
	cfg.PDF.UserDataDir = t.TempDir()
	cfg.PDF.TimeoutSecs = 30
	return cfg
}

// browserProcesses counts live processes whose command line mentions dir.
func browserProcesses(t *testing.T, dir string) int {
	t.Helper()
	matches, err := filepath.Glob("/proc/[0-9]*/cmdline")
	require.NoError(t, err)
	n := 0
	for _, m := range matches {
		data, err := os.ReadFile(m)
		if err != nil {
			continue
		}
		if strings.Contains(string(data), dir) {
			n++
		}
	}
	return n
}

func waitNoBrowsers(t *testing.T, dir string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for browserProcesses(t, dir) > 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	assert.Zero(t, browserProcesses(t, dir), "browser processes left running")
}

func TestIntegration_RendersPDFAndExits(t *testing.T) {
	for _, engine := range []string{"chromedp", "rod"} {
		t.Run(engine, func(t *testing.T) {
			cfg := integrationConfig(t, engine)
			r, err := NewRenderer(cfg)
			require.NoError(t, err)

			pdf, err := r.RenderHTMLToPDF(context.Background(), `<html><body style="background:#eee"><h1>Hello</h1></body></html>`)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))

			waitNoBrowsers(t, cfg.PDF.UserDataDir)
		})
	}
}

func TestIntegration_WaitsForNetworkIdle(t *testing.T) {
	var served sync.WaitGroup
	served.Add(1)
	var once sync.Once
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Header().Set("Content-Type", "text/css")
		fmt.Fprint(w, "body { color: red; }")
		once.Do(served.Done)
	}))
	defer srv.Close()

	cfg := integrationConfig(t, "chromedp")
	r := NewChromedpRenderer(cfg)

	html := fmt.Sprintf(`<html><head><link rel="stylesheet" href="%s/style.css"></head><body>x</body></html>`, srv.URL)
	start := time.Now()
	_, err := r.RenderHTMLToPDF(context.Background(), html)
	require.NoError(t, err)
	served.Wait()
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond+cfg.NetworkIdle())
}

func TestIntegration_TimeoutReleasesBrowser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	cfg := integrationConfig(t, "chromedp")
	cfg.PDF.TimeoutSecs = 2
	r := NewChromedpRenderer(cfg)

	html := fmt.Sprintf(`<html><body><img src="%s/hang.png"></body></html>`, srv.URL)
	_, err := r.RenderHTMLToPDF(context.Background(), html)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPageLoad)
	assert.True(t, IsSessionInterrupted(err))
	assert.Zero(t, r.Stats().Active)

	waitNoBrowsers(t, cfg.PDF.UserDataDir)
}
