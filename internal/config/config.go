package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the application configuration.
type Config struct {
	App struct {
		Port string `mapstructure:"port"`
		Env  string `mapstructure:"env"`
	} `mapstructure:"app"`
	Database struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"database"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
	} `mapstructure:"kafka"`
	Authz struct {
		BaseURL        string `mapstructure:"baseUrl"`
		APIKey         string `mapstructure:"apiKey"`
		TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
	} `mapstructure:"authz"`
	Orchestrator struct {
		BaseURL        string `mapstructure:"baseUrl"`
		APIKey         string `mapstructure:"apiKey"`
		TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
	} `mapstructure:"orchestrator"`
	Auth struct {
		JWTSecret string `mapstructure:"jwtSecret"`
		AdminRole string `mapstructure:"adminRole"`
		// RequireAdminRole gates admin routes on the role derived
		// from the verified token. When false, any authenticated
		// caller passes the admin check. One knob, one decision.
		RequireAdminRole bool `mapstructure:"requireAdminRole"`
	} `mapstructure:"auth"`
}

// LoadConfig loads the configuration from file and environment.
// Missing files are not fatal: defaults plus environment variables
// are enough to boot a local instance.
func LoadConfig(path string) (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load(path)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetDefault("app.port", "8080")
	viper.SetDefault("app.env", "development")
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("auth.adminRole", "admin")
	viper.SetDefault("auth.requireAdminRole", true)
	viper.SetDefault("authz.timeoutSeconds", 10)
	viper.SetDefault("orchestrator.timeoutSeconds", 30)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
