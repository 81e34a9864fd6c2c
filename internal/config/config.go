package config

import (
	"errors"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/spf13/viper"
)

// 用于管理客户端配置

var (
	// 使用 atomic.Value 存储 *Config，实现无锁读取
	appConfig atomic.Value
	configMu  sync.Mutex // 仅用于写操作互斥
	configDir = "config"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Gallery GalleryConfig `mapstructure:"gallery"`
	Upload  UploadConfig  `mapstructure:"upload"`
	State   StateConfig   `mapstructure:"state"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// AuthConfig 外部认证服务的接入点
// URL 与 Key 缺失时无法登录（应用其余逻辑不受影响）
type AuthConfig struct {
	URL string `mapstructure:"url"`
	Key string `mapstructure:"key"`
}

type GalleryConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	PageSize    int    `mapstructure:"page_size"`
	ReadRetries int    `mapstructure:"read_retries"` // 只读请求的自动重试次数，变更类请求不重试
	TimeoutSec  int    `mapstructure:"timeout_sec"`
}

type UploadConfig struct {
	MaxFiles      int    `mapstructure:"max_files"`
	MaxFileSizeMB int    `mapstructure:"max_file_size_mb"`
	AllowedExts   string `mapstructure:"allowed_exts"`
	SpoolPath     string `mapstructure:"spool_path"`   // 待提交文件的暂存目录
	PreviewPath   string `mapstructure:"preview_path"` // 预览缩略图目录
	PreviewWidth  int    `mapstructure:"preview_width"`
}

type StateConfig struct {
	Filename string `mapstructure:"filename"` // 本地状态库（会话 + 图库缓存）
}

// Get 获取当前配置的快照（无锁读取）
func Get() Config {
	val := appConfig.Load()
	if val == nil {
		return Config{}
	}
	c, ok := val.(*Config)
	if !ok {
		return Config{}
	}
	return *c
}

func GetConfigDir() string {
	return configDir
}

func InitConfig(customConfigDir string) {
	v := initViper(customConfigDir)
	loadAndStore(v)
	log.Println("✅ 配置加载成功")
}

func initViper(customConfigDir string) *viper.Viper {
	v := viper.New()

	customConfigDir = strings.TrimSpace(customConfigDir)
	if customConfigDir == "" {
		customConfigDir = "config"
	}
	configDir = customConfigDir

	// 设置配置文件路径
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// 设置默认值
	v.SetDefault("server.port", "8180")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("auth.url", "")
	v.SetDefault("auth.key", "")
	v.SetDefault("gallery.base_url", "")
	v.SetDefault("gallery.page_size", 20)
	v.SetDefault("gallery.read_retries", 1)
	v.SetDefault("gallery.timeout_sec", 30)
	v.SetDefault("upload.max_files", 10)
	v.SetDefault("upload.max_file_size_mb", 10)
	v.SetDefault("upload.allowed_exts", ".jpg,.jpeg,.png,.webp,.gif")
	v.SetDefault("upload.spool_path", "tmp/spool")
	v.SetDefault("upload.preview_path", "tmp/previews")
	v.SetDefault("upload.preview_width", 320)
	v.SetDefault("state.filename", "database/jackalope.db")

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			log.Println("⚠️  未找到配置文件，将仅使用环境变量或默认值")
		} else {
			log.Fatalf("❌ 读取配置文件失败: %v", err)
		}
	}

	// 配置环境变量覆盖
	// 规则：所有环境变量必须以 JACKALOPE_ 开头
	// 例如：yaml 中的 auth.url 对应环境变量 JACKALOPE_AUTH_URL
	v.SetEnvPrefix("JACKALOPE")
	v.AutomaticEnv()

	// 解决层级分隔符问题：将 key 中的 "." 替换为 "_"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return v
}

// loadAndStore 解析并原子更新配置
func loadAndStore(v *viper.Viper) {
	configMu.Lock()
	defer configMu.Unlock()

	var tempConfig Config
	if err := v.Unmarshal(&tempConfig); err != nil {
		log.Printf("❌ 配置解析失败: %v", err)
		return
	}

	if tempConfig.Auth.URL == "" || tempConfig.Auth.Key == "" {
		log.Println("⚠️ 未配置认证服务地址或密钥，登录功能将不可用")
	}

	// 原子替换全局配置
	appConfig.Store(&tempConfig)
}

// SetForTest 测试专用：直接替换全局配置
func SetForTest(c Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig.Store(&c)
}
