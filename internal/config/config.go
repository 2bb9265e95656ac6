package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App    AppConfig
	Server ServerConfig
	Data   DataConfig
	Engine EngineConfig
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string
	Environment string
	Version     string
	Debug       bool
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

// DataConfig 数据目录配置，settings.json 与事件日志存放于此
type DataConfig struct {
	Dir string
}

// EngineConfig 引擎配置
type EngineConfig struct {
	// BatchSize 批处理粒度，进度上报与取消检查按此批次进行
	BatchSize int
	// PreviewTruncate 预览单元格文本截断长度
	PreviewTruncate int
	// PreviewCodeThreshold 超过该字符数的单元格按代码渲染
	PreviewCodeThreshold int
	// FuzzyHammingMax 模糊去重的汉明距离阈值
	FuzzyHammingMax int
}

var globalConfig *Config

// Load 加载配置
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	setDefaults(v)

	// 环境变量
	v.SetEnvPrefix("DATALAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("config not loaded")
	}
	return globalConfig
}

// GetAddr 获取服务器地址
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "datalab")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", true)

	// Server
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)

	// Data
	v.SetDefault("data.dir", "./data")

	// Engine
	v.SetDefault("engine.batchSize", 1000)
	v.SetDefault("engine.previewTruncate", 480)
	v.SetDefault("engine.previewCodeThreshold", 160)
	v.SetDefault("engine.fuzzyHammingMax", 3)
}
