package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// ConfigSuite is a test suite for config loading.
type ConfigSuite struct {
	suite.Suite
	tempDir string
}

func (s *ConfigSuite) SetupTest() {
	s.tempDir = s.T().TempDir()
	for _, k := range []string{"ENGINE_URL", "DB_DRIVER", "DB_DSN", "OPENAI_API_KEY", "SERVER_PORT"} {
		s.T().Setenv(k, "")
	}
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) write(body string) string {
	path := filepath.Join(s.tempDir, "config.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(body), 0o600))
	return path
}

func (s *ConfigSuite) TestDefaultsWhenFileMissing() {
	cfg, err := Load(filepath.Join(s.tempDir, "nope.yaml"))
	s.Require().NoError(err)

	s.Equal(DefaultPort, cfg.Server.Port)
	s.Equal("sqlite", cfg.Database.Driver)
	s.Equal(DefaultSQLitePath, cfg.DatabaseDSN())
	s.Equal("http", cfg.Engine.Provider)
	s.Equal(DefaultEngineURL, cfg.Engine.URL)
	s.Equal(DefaultTimeout, cfg.Engine.Timeout)
	s.Equal("info", cfg.Log.Level)
	s.False(cfg.Minio.Enabled)
}

func (s *ConfigSuite) TestLoadYAML() {
	path := s.write(`
server:
  port: 9090
  rateLimit: 20
database:
  driver: mysql
  host: db
  port: 3306
  user: firewall
  password: secret
  name: firewall
engine:
  url: http://engine:5000/analyze
  timeout: 3s
log:
  level: debug
  pretty: true
`)
	cfg, err := Load(path)
	s.Require().NoError(err)

	s.Equal(9090, cfg.Server.Port)
	s.Equal(20, cfg.Server.RateLimit)
	s.Equal(20, cfg.Server.RefillRate)
	s.Equal("firewall:secret@tcp(db:3306)/firewall?parseTime=true&charset=utf8mb4&loc=UTC", cfg.DatabaseDSN())
	s.Equal("http://engine:5000/analyze", cfg.Engine.URL)
	s.Equal(3*time.Second, cfg.Engine.Timeout)
	s.True(cfg.Log.Pretty)
}

func (s *ConfigSuite) TestPostgresDSN() {
	path := s.write(`
database:
  driver: postgres
  host: pg
  port: 5432
  user: u
  password: p
  name: n
`)
	cfg, err := Load(path)
	s.Require().NoError(err)
	s.Equal("host=pg port=5432 user=u password=p dbname=n sslmode=disable", cfg.DatabaseDSN())
}

func (s *ConfigSuite) TestEnvOverrides() {
	path := s.write("engine:\n  url: http://from-file:5000/analyze\n")
	s.T().Setenv("ENGINE_URL", "http://from-env:5000/analyze")
	s.T().Setenv("DB_DRIVER", "postgres")
	s.T().Setenv("DB_DSN", "postgres://u:p@h/db")
	s.T().Setenv("SERVER_PORT", "7000")

	cfg, err := Load(path)
	s.Require().NoError(err)
	s.Equal("http://from-env:5000/analyze", cfg.Engine.URL)
	s.Equal("postgres", cfg.Database.Driver)
	s.Equal("postgres://u:p@h/db", cfg.DatabaseDSN())
	s.Equal(7000, cfg.Server.Port)
}

func (s *ConfigSuite) TestDriverEnvSwitchesToSQLiteFile() {
	path := s.write("database:\n  driver: postgres\n  host: db\n  port: 5432\n")
	s.T().Setenv("DB_DRIVER", "sqlite")

	cfg, err := Load(path)
	s.Require().NoError(err)
	s.Equal("sqlite", cfg.Database.Driver)
	s.Equal(DefaultSQLitePath, cfg.Database.Path)
	s.Equal(DefaultSQLitePath, cfg.DatabaseDSN())
}

func (s *ConfigSuite) TestInvalid() {
	cases := map[string]string{
		"driver":     "database:\n  driver: oracle\n",
		"provider":   "engine:\n  provider: grpc\n",
		"openai key": "engine:\n  provider: openai\n",
		"port":       "server:\n  port: 70000\n",
		"minio":      "minio:\n  enabled: true\n",
		"yaml":       "server: [",
	}
	for name, body := range cases {
		_, err := Load(s.write(body))
		s.Error(err, name)
	}

	s.T().Setenv("SERVER_PORT", "eighty")
	_, err := Load(s.write(""))
	s.Error(err)
}
