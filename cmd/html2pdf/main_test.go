package main

import (
	"net"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"html2pdf-api/internal/config"
	"html2pdf-api/internal/infra/cache"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"--config", "/etc/html2pdf.yaml", "-p", ":8080", "--log-level", "debug"})
	require.NoError(t, err)
	assert.Equal(t, "/etc/html2pdf.yaml", opts.configPath)
	assert.Equal(t, ":8080", opts.port)
	assert.Equal(t, "debug", opts.logLevel)

	opts, err = parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, options{}, opts)

	_, err = parseFlags([]string{"--nope"})
	assert.Error(t, err)
}

func TestNewCacheStore(t *testing.T) {
	cfg := config.Default()
	assert.Nil(t, newCacheStore(cfg))

	cfg.Cache.PDFCacheEnabled = true
	mem := newCacheStore(cfg)
	require.IsType(t, &cache.MemoryStore{}, mem)
	_ = mem.Close()

	mrs, err := miniredis.Run()
	require.NoError(t, err)
	defer mrs.Close()
	cfg.Cache.Backend = "redis"
	cfg.Cache.RedisHost = mrs.Addr()
	rs := newCacheStore(cfg)
	require.IsType(t, &cache.RedisStore{}, rs)
	_ = rs.Close()
}

func TestStartServer_GracefulShutdownOnSignal(t *testing.T) {
	app := fiber.New()
	var cfg config.Config
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = ":0"

	idleConnsClosed := make(chan struct{})
	go startServer(app, cfg, idleConnsClosed)

	time.Sleep(100 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("failed to send SIGTERM: %v", err)
	}

	select {
	case <-idleConnsClosed:
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for graceful shutdown")
	}
}

func TestStartServer_ReturnsListenError(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()
	_, port, err := net.SplitHostPort(busy.Addr().String())
	require.NoError(t, err)

	var cfg config.Config
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = ":" + port

	idleConnsClosed := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- startServer(fiber.New(), cfg, idleConnsClosed)
	}()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatalf("startServer kept waiting after listen failed")
	}
	_, open := <-idleConnsClosed
	assert.False(t, open)
}

func TestRun_UsesConfigAndShutsDown(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cfg.yaml")
	err := os.WriteFile(cfgPath, []byte(`
server:
  host: "127.0.0.1"
  port: ":0"
upload:
  dir: "`+filepath.Join(dir, "uploads")+`"
logger:
  file: "`+filepath.Join(dir, "html2pdf.log")+`"
  level: "info"
  max_size_mb: 1
  max_backups: 1
  max_age_days: 1
pdf:
  engine: chromedp
  default_paper: "A4"
  timeout_secs: 1
  chrome_path: "/bin/true"
`), 0o644)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- run([]string{"--config", cfgPath, "--log-level", "warn"})
	}()

	time.Sleep(200 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("signal run: %v", err)
	}

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for run to exit")
	}

	_, err = os.Stat(filepath.Join(dir, "uploads"))
	assert.NoError(t, err, "upload dir is created at startup")
}
