// Console 설정 로딩
//
// 우선순위 (뒤가 앞을 덮어씀):
//  1. 기본값
//  2. SOC_CONFIG 가 가리키는 YAML 파일
//  3. 환경변수 (.env 파일 포함)
//
// 환경변수:
//   - SOC_API_URL: SOC 서비스 base URL
//   - SOC_API_TIMEOUT: 요청 timeout (예: 15s)
//   - SOC_AUTH_SCHEME: Authorization 헤더 scheme (Bearer | Token)
//   - SOC_SESSION_FILE: 세션 파일 경로
//   - SOC_POLL_DETAIL_INTERVAL / SOC_POLL_DASHBOARD_INTERVAL
//   - SOC_LOG_LEVEL / SOC_LOG_FORMAT
//   - SOC_MOCK_ADDR / SOC_MOCK_JWT_SECRET / SOC_MOCK_TOKEN_TTL
//   - SOC_MOCK_CORS_ORIGINS: 쉼표로 구분한 origin 목록

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Poll    PollConfig    `yaml:"poll"`
	Log     LogConfig     `yaml:"log"`
	Mock    MockConfig    `yaml:"mock"`
}

type APIConfig struct {
	BaseURL    string        `yaml:"baseURL"`
	Timeout    time.Duration `yaml:"timeout"`
	AuthScheme string        `yaml:"authScheme"`
}

type SessionConfig struct {
	FilePath string `yaml:"filePath"`
}

type PollConfig struct {
	DetailInterval    time.Duration `yaml:"detailInterval"`
	DashboardInterval time.Duration `yaml:"dashboardInterval"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MockConfig struct {
	Addr      string        `yaml:"addr"`
	JWTSecret string        `yaml:"jwtSecret"`
	TokenTTL  time.Duration `yaml:"tokenTTL"`
	// 브라우저 클라이언트용 CORS 허용 origin
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:    "http://localhost:8080",
			Timeout:    15 * time.Second,
			AuthScheme: "Bearer",
		},
		Session: SessionConfig{
			FilePath: defaultSessionPath(),
		},
		Poll: PollConfig{
			DetailInterval:    30 * time.Second,
			DashboardInterval: 60 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		Mock: MockConfig{
			Addr:           ":8080",
			JWTSecret:      "dev-secret-change-me",
			TokenTTL:       12 * time.Hour,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file and
// the environment. A missing .env file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("SOC_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.API.BaseURL = getenv("SOC_API_URL", cfg.API.BaseURL)
	cfg.API.AuthScheme = getenv("SOC_AUTH_SCHEME", cfg.API.AuthScheme)
	cfg.Session.FilePath = getenv("SOC_SESSION_FILE", cfg.Session.FilePath)
	cfg.Log.Level = getenv("SOC_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getenv("SOC_LOG_FORMAT", cfg.Log.Format)
	cfg.Mock.Addr = getenv("SOC_MOCK_ADDR", cfg.Mock.Addr)
	cfg.Mock.JWTSecret = getenv("SOC_MOCK_JWT_SECRET", cfg.Mock.JWTSecret)
	if origins := os.Getenv("SOC_MOCK_CORS_ORIGINS"); origins != "" {
		cfg.Mock.AllowedOrigins = strings.Split(origins, ",")
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SOC_API_TIMEOUT", &cfg.API.Timeout},
		{"SOC_POLL_DETAIL_INTERVAL", &cfg.Poll.DetailInterval},
		{"SOC_POLL_DASHBOARD_INTERVAL", &cfg.Poll.DashboardInterval},
		{"SOC_MOCK_TOKEN_TTL", &cfg.Mock.TokenTTL},
	}
	for _, d := range durations {
		if err := getduration(d.key, d.dst); err != nil {
			return Config{}, err
		}
	}

	if cfg.API.BaseURL == "" {
		return Config{}, fmt.Errorf("SOC_API_URL is required")
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func defaultSessionPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "soc-console-session.json")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "soc-console", "session.json")
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getduration(key string, dst *time.Duration) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}
