package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Quiz     QuizConfig     `mapstructure:"quiz"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
	Development    bool   `mapstructure:"development"`
}

type DatabaseConfig struct {
	// Driver 选择词库存储实现: "gorm" 或 "pq"
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// QuizConfig 控制房间的时间与计分参数
type QuizConfig struct {
	QuestionTimeLimit time.Duration `mapstructure:"question_time_limit"`
	MaxPoints         int           `mapstructure:"max_points"`
	RemovalGrace      time.Duration `mapstructure:"removal_grace"`
	MaxRoomAge        time.Duration `mapstructure:"max_room_age"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	CommandBuffer     int           `mapstructure:"command_buffer"`
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("database.driver", "gorm")
	viper.SetDefault("quiz.question_time_limit", 20*time.Second)
	viper.SetDefault("quiz.max_points", 1000)
	viper.SetDefault("quiz.removal_grace", 30*time.Second)
	viper.SetDefault("quiz.max_room_age", 2*time.Hour)
	viper.SetDefault("quiz.sweep_interval", 10*time.Minute)
	viper.SetDefault("quiz.command_buffer", 64)

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
