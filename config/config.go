package config

import (
	"os"
	"path"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// DBConfig Database config
type DBConfig struct {
	Type     string `yaml:"type"` // postgres or sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// SysConfig System config
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
	// ActivityRetentionDays bounds how long activity events are kept
	ActivityRetentionDays int `yaml:"activity_retention_days"`
	// ReconcileEnabled schedules the hourly category usage repair job
	ReconcileEnabled bool `yaml:"reconcile_enabled"`
}

// WebConfig Web server config
type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// AuthConfig admin token settings
type AuthConfig struct {
	Secret        string `yaml:"secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`
}

// MailConfig SMTP settings used for enquiry notifications
type MailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	NotifyTo string `yaml:"notify_to"`
}

// DashboardConfig dashboard behaviour switches
type DashboardConfig struct {
	// ProportionalTrend spreads the 7 trend buckets across the whole requested
	// range instead of the last 7 calendar days.
	ProportionalTrend bool `yaml:"proportional_trend"`
}

// LogConfig Log config
type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

type AppConfig struct {
	System    SysConfig       `yaml:"system"`
	Web       WebConfig       `yaml:"web"`
	Database  DBConfig        `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Mail      MailConfig      `yaml:"mail"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Logger    LogConfig       `yaml:"logger"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

// DefaultAppConfig returns a config usable without any file
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:                 "SiteAdmin",
			Location:              "UTC",
			Workdir:               "/var/siteadmin",
			Debug:                 false,
			ActivityRetentionDays: 180,
			ReconcileEnabled:      true,
		},
		Web: WebConfig{
			Host: "0.0.0.0",
			Port: 5000,
		},
		Database: DBConfig{
			Type:     "postgres",
			Host:     "127.0.0.1",
			Port:     5432,
			Name:     "siteadmin",
			User:     "postgres",
			Passwd:   "postgres",
			MaxConn:  50,
			IdleConn: 10,
			Debug:    false,
		},
		Auth: AuthConfig{
			Secret:        "change-me",
			TokenTTLHours: 24,
			AdminUsername: "admin",
			AdminPassword: "siteadmin",
		},
		Mail: MailConfig{
			Enabled: false,
			Port:    587,
		},
		Logger: LogConfig{
			Mode:       "development",
			FileEnable: false,
			Filename:   "/var/siteadmin/siteadmin.log",
		},
	}
}

// LoadConfig reads the yaml file when it exists and then applies
// SITEADMIN_* environment overrides.
func LoadConfig(cfile string) (*AppConfig, error) {
	cfg := DefaultAppConfig()
	if cfile != "" {
		data, err := os.ReadFile(cfile)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	setEnvValue("SITEADMIN_SYSTEM_WORKER_DIR", &cfg.System.Workdir)
	setEnvValue("SITEADMIN_SYSTEM_LOCATION", &cfg.System.Location)
	setEnvBoolValue("SITEADMIN_SYSTEM_DEBUG", &cfg.System.Debug)
	setEnvBoolValue("SITEADMIN_SYSTEM_RECONCILE", &cfg.System.ReconcileEnabled)

	setEnvValue("SITEADMIN_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("SITEADMIN_WEB_PORT", &cfg.Web.Port)

	setEnvValue("SITEADMIN_DB_TYPE", &cfg.Database.Type)
	setEnvValue("SITEADMIN_DB_HOST", &cfg.Database.Host)
	setEnvValue("SITEADMIN_DB_NAME", &cfg.Database.Name)
	setEnvValue("SITEADMIN_DB_USER", &cfg.Database.User)
	setEnvValue("SITEADMIN_DB_PWD", &cfg.Database.Passwd)
	setEnvIntValue("SITEADMIN_DB_PORT", &cfg.Database.Port)
	setEnvBoolValue("SITEADMIN_DB_DEBUG", &cfg.Database.Debug)

	setEnvValue("SITEADMIN_AUTH_SECRET", &cfg.Auth.Secret)
	setEnvValue("SITEADMIN_ADMIN_USERNAME", &cfg.Auth.AdminUsername)
	setEnvValue("SITEADMIN_ADMIN_PASSWORD", &cfg.Auth.AdminPassword)

	setEnvBoolValue("SITEADMIN_MAIL_ENABLED", &cfg.Mail.Enabled)
	setEnvValue("SITEADMIN_MAIL_HOST", &cfg.Mail.Host)
	setEnvIntValue("SITEADMIN_MAIL_PORT", &cfg.Mail.Port)
	setEnvValue("SITEADMIN_MAIL_USERNAME", &cfg.Mail.Username)
	setEnvValue("SITEADMIN_MAIL_PASSWORD", &cfg.Mail.Password)
	setEnvValue("SITEADMIN_MAIL_FROM", &cfg.Mail.From)
	setEnvValue("SITEADMIN_MAIL_NOTIFY_TO", &cfg.Mail.NotifyTo)

	setEnvBoolValue("SITEADMIN_DASHBOARD_PROPORTIONAL_TREND", &cfg.Dashboard.ProportionalTrend)

	setEnvValue("SITEADMIN_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("SITEADMIN_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)

	return cfg, nil
}

func setEnvValue(name string, val *string) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = evalue
	}
}

func setEnvBoolValue(name string, val *bool) {
	var evalue = strings.TrimSpace(os.Getenv(name))
	if evalue != "" {
		*val = cast.ToBool(evalue)
	}
}

func setEnvIntValue(name string, val *int) {
	var evalue = strings.TrimSpace(os.Getenv(name))
	if evalue == "" {
		return
	}
	if p, err := cast.ToIntE(evalue); err == nil {
		*val = p
	}
}
