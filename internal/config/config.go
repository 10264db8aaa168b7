package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither a flag nor CONFIG_PATH names a file.
const DefaultPath = "config.yaml"

// PaperSize is a page size in inches.
type PaperSize struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Config is the service configuration.
type Config struct {
	Server struct {
		Host        string `yaml:"host"`
		Port        string `yaml:"port"`
		Prefork     bool   `yaml:"prefork"`
		BodyLimitMB int    `yaml:"body_limit_mb"`
	} `yaml:"server"`

	Upload struct {
		Dir string `yaml:"dir"`
	} `yaml:"upload"`

	Output struct {
		DefaultFilename string `yaml:"default_filename"`
	} `yaml:"output"`

	Logger struct {
		File       string `yaml:"file"`
		Level      string `yaml:"level"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logger"`

	Cache struct {
		PDFCacheEnabled bool          `yaml:"pdf_cache_enabled"`
		PDFCacheTTL     time.Duration `yaml:"pdf_cache_ttl"`
		Backend         string        `yaml:"backend"`
		RedisHost       string        `yaml:"redis_host"`
		PDFCacheDB      int           `yaml:"redis_pdf_db"`
	} `yaml:"cache"`

	PDF struct {
		Engine          string               `yaml:"engine"`
		DefaultPaper    string               `yaml:"default_paper"`
		PaperSizes      map[string]PaperSize `yaml:"paper_sizes"`
		MarginInches    float64              `yaml:"margin_inches"`
		TimeoutSecs     int                  `yaml:"timeout_secs"`
		NetworkIdleMS   int                  `yaml:"network_idle_ms"`
		ChromePath      string               `yaml:"chrome_path"`
		ChromeNoSandbox bool                 `yaml:"chrome_no_sandbox"`
		UserDataDir     string               `yaml:"user_data_dir"`
	} `yaml:"pdf"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	var cfg Config
	cfg.Server.Port = ":3000"
	cfg.Server.BodyLimitMB = 10
	cfg.Upload.Dir = "uploads"
	cfg.Output.DefaultFilename = "output.pdf"
	cfg.Logger.Level = "info"
	cfg.Logger.MaxSizeMB = 10
	cfg.Logger.MaxBackups = 3
	cfg.Logger.MaxAgeDays = 7
	cfg.Cache.PDFCacheTTL = 10 * time.Minute
	cfg.Cache.Backend = "memory"
	cfg.Cache.RedisHost = "127.0.0.1:6379"
	cfg.PDF.Engine = "chromedp"
	cfg.PDF.DefaultPaper = "A4"
	cfg.PDF.PaperSizes = map[string]PaperSize{
		"A4":     {Width: 8.27, Height: 11.69},
		"A3":     {Width: 11.69, Height: 16.54},
		"LETTER": {Width: 8.5, Height: 11},
		"LEGAL":  {Width: 8.5, Height: 14},
	}
	cfg.PDF.NetworkIdleMS = 500
	return cfg
}

// Load reads the file named by CONFIG_PATH, or DefaultPath.
func Load() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = DefaultPath
	}
	return LoadFrom(path)
}

// LoadFrom reads and validates the YAML file at path on top of Default.
// A missing file yields the defaults. Invalid content panics.
func LoadFrom(path string) Config {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		panic(fmt.Sprintf("config: read %s: %v", path, err))
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			panic(fmt.Sprintf("config: parse %s: %v", path, err))
		}
	}

	if v := os.Getenv("CHROME_BIN"); v != "" && cfg.PDF.ChromePath == "" {
		cfg.PDF.ChromePath = v
	}

	normalize(&cfg)
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: %s: %v", path, err))
	}
	return cfg
}

func normalize(cfg *Config) {
	cfg.PDF.Engine = strings.ToLower(strings.TrimSpace(cfg.PDF.Engine))
	cfg.PDF.DefaultPaper = strings.ToUpper(strings.TrimSpace(cfg.PDF.DefaultPaper))
	sizes := make(map[string]PaperSize, len(cfg.PDF.PaperSizes))
	for name, size := range cfg.PDF.PaperSizes {
		sizes[strings.ToUpper(name)] = size
	}
	cfg.PDF.PaperSizes = sizes
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port is empty")
	}
	if c.Server.BodyLimitMB < 0 {
		return errors.New("server.body_limit_mb must not be negative")
	}
	if c.Upload.Dir == "" {
		return errors.New("upload.dir is empty")
	}
	if c.Output.DefaultFilename == "" {
		return errors.New("output.default_filename is empty")
	}
	switch c.PDF.Engine {
	case "chromedp", "rod":
	default:
		return fmt.Errorf("pdf.engine %q is not supported", c.PDF.Engine)
	}
	paper, ok := c.PDF.PaperSizes[c.PDF.DefaultPaper]
	if !ok {
		return fmt.Errorf("pdf.default_paper %q is not in pdf.paper_sizes", c.PDF.DefaultPaper)
	}
	if paper.Width <= 0 || paper.Height <= 0 {
		return fmt.Errorf("pdf.paper_sizes.%s must have positive dimensions", c.PDF.DefaultPaper)
	}
	if c.PDF.MarginInches < 0 {
		return errors.New("pdf.margin_inches must not be negative")
	}
	if c.PDF.TimeoutSecs < 0 {
		return errors.New("pdf.timeout_secs must not be negative")
	}
	if c.PDF.NetworkIdleMS < 0 {
		return errors.New("pdf.network_idle_ms must not be negative")
	}
	if c.Cache.PDFCacheEnabled {
		switch c.Cache.Backend {
		case "memory":
		case "redis":
			if c.Cache.RedisHost == "" {
				return errors.New("cache.redis_host is empty")
			}
		default:
			return fmt.Errorf("cache.backend %q is not supported", c.Cache.Backend)
		}
	}
	return nil
}

// Paper returns the configured default paper size.
func (c Config) Paper() PaperSize {
	return c.PDF.PaperSizes[c.PDF.DefaultPaper]
}

// Timeout is the per-render deadline. Zero means none.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.PDF.TimeoutSecs) * time.Second
}

// NetworkIdle is how long the page must go without in-flight requests before printing.
func (c Config) NetworkIdle() time.Duration {
	return time.Duration(c.PDF.NetworkIdleMS) * time.Millisecond
}

// BodyLimit is the maximum request body size in bytes.
func (c Config) BodyLimit() int {
	if c.Server.BodyLimitMB <= 0 {
		return 4 * 1024 * 1024
	}
	return c.Server.BodyLimitMB * 1024 * 1024
}
