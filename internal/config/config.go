package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 默认配置常量
const (
	// NSQ 队列默认配置
	DefaultNSQTopic       = "solid-notify"
	DefaultNSQChannel     = "notify-workers"
	DefaultNSQMaxInFlight = 64
	DefaultNSQConcurrency = 4
	DefaultNSQMaxAttempts = 5
	DefaultDLQTopicSuffix = ".DLQ"
	DefaultNSQDedupTTL    = 24 * time.Hour

	// 应用默认配置
	DefaultHTTPAddress    = ":8080"
	DefaultRequestTimeout = 5 * time.Second

	// 存储默认配置
	DefaultStorageBackend = BackendMemory
	DefaultRedisNamespace = "solid"

	// 串口默认配置
	DefaultModemBaudRate       = 115200
	DefaultModemReadTimeout    = 200 * time.Millisecond
	DefaultModemCommandTimeout = 10 * time.Second
	DefaultModemDialTimeout    = 60 * time.Second

	// 邮件默认配置
	DefaultEmailSubject = "Notification"
)

// 存储后端
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMySQL  = "mysql"
	BackendHybrid = "hybrid"
)

// 通道类型
const (
	ChannelEmail          = "email"
	ChannelSMS            = "sms"
	ChannelVoice          = "voice"
	ChannelDiscord        = "discord"
	ChannelSMTPEmail      = "smtp_email"
	ChannelModemSMS       = "modem_sms"
	ChannelModemVoice     = "modem_voice"
	ChannelDiscordWebhook = "discord_webhook"
)

// 环境变量名
const (
	EnvConfigPath = "SOLID_CONFIG"
	EnvMySQLDSN   = "SOLID_MYSQL_DSN"
	EnvRedisAddr  = "SOLID_REDIS_ADDR"
)

// App 应用全局配置
type App struct {
	Addr           string        `yaml:"Addr"`           // HTTP 监听地址
	RequestTimeout time.Duration `yaml:"RequestTimeout"` // 单次请求超时
	AsyncNotify    bool          `yaml:"AsyncNotify"`    // 未指定 mode 时是否走队列
}

// MySQLConfig MySQL 数据库连接配置
type MySQLConfig struct {
	DSN             string        `yaml:"DSN"`             // 数据源配置
	MaxOpenConns    int           `yaml:"MaxOpenConns"`    // 最大打开连接数
	MaxIdleConns    int           `yaml:"MaxIdleConns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `yaml:"ConnMaxLifetime"` // 连接最大生命周期
}

// Storage 消息记录存储配置
type Storage struct {
	Backend   string        `yaml:"Backend"`   // memory | redis | mysql | hybrid
	RedisAddr string        `yaml:"RedisAddr"` // Redis 地址
	Namespace string        `yaml:"Namespace"` // Redis 键前缀
	MaxKeep   int64         `yaml:"MaxKeep"`   // Redis 缓存保留条数, 0 表示不限制, 仅 hybrid 可用
	TTL       time.Duration `yaml:"TTL"`       // Redis 缓存过期时间, 0 表示不过期, 仅 hybrid 可用
	MySQL     MySQLConfig   `yaml:"MySQL"`     // MySQL 配置
}

// NSQ 异步通知队列配置
type NSQ struct {
	Topic                       string        `yaml:"Topic"`                       // 消息主题
	Channel                     string        `yaml:"Channel"`                     // 消费者通道
	NsqdTCPAddrs                []string      `yaml:"NsqdTCPAddrs"`                // NSQD TCP 地址列表
	LookupdHTTPAddrs            []string      `yaml:"LookupdHTTPAddrs"`            // Lookupd HTTP 地址列表
	MaxInFlight                 int           `yaml:"MaxInFlight"`                 // 最大并发消息数
	Concurrency                 int           `yaml:"Concurrency"`                 // 处理并发数
	ProducerAddr                string        `yaml:"ProducerAddr"`                // 生产者地址
	ConsumerEnabled             bool          `yaml:"ConsumerEnabled"`             // 是否启用消费
	DLQTopic                    string        `yaml:"DLQTopic"`                    // 死信队列主题
	MaxConsumeAttemptsBeforeDLQ int           `yaml:"MaxConsumeAttemptsBeforeDLQ"` // 进入死信队列前最大尝试次数
	DedupTTL                    time.Duration `yaml:"DedupTTL"`                    // 信封去重标记保留时间(需要 Redis)
}

// Channel 通知通道注册项, 按列表顺序注册
type Channel struct {
	Type    string `yaml:"Type"`
	Enabled *bool  `yaml:"Enabled"` // 未填写视为启用
	Target  string `yaml:"Target"`  // 手机号等投递目标(modem 通道使用)
}

// IsEnabled 返回通道是否启用
func (channel Channel) IsEnabled() bool {
	return channel.Enabled == nil || *channel.Enabled
}

// Modem 4G 模块串口配置
type Modem struct {
	PortName       string        `yaml:"PortName"`       // 串口名称
	BaudRate       int           `yaml:"BaudRate"`       // 波特率
	ReadTimeout    time.Duration `yaml:"ReadTimeout"`    // 串口读取超时
	CommandTimeout time.Duration `yaml:"CommandTimeout"` // AT 命令超时
	DialTimeout    time.Duration `yaml:"DialTimeout"`    // 拨号等待接通超时
	SMSCNumber     string        `yaml:"SMSCNumber"`     // 短信中心号码, 为空时由模块决定
}

// Email SMTP 邮件通道配置
type Email struct {
	From     string   `yaml:"From"`     // 发件人邮箱地址
	FromName string   `yaml:"FromName"` // 发件人显示名称
	To       []string `yaml:"To"`       // 收件人列表
	Subject  string   `yaml:"Subject"`  // 邮件主题
	SMTPHost string   `yaml:"SMTPHost"` // SMTP 服务器主机名
	SMTPPort int      `yaml:"SMTPPort"` // SMTP 服务器端口
	Username string   `yaml:"Username"` // SMTP 认证用户名
	Password string   `yaml:"Password"` // SMTP 认证密码
	UseTLS   bool     `yaml:"UseTLS"`   // 是否启用 STARTTLS
	UseSSL   bool     `yaml:"UseSSL"`   // 是否使用 SSL 直连
}

// Discord Webhook 配置
type Discord struct {
	WebhookURL string        `yaml:"WebhookURL"`
	Username   string        `yaml:"Username"`
	Timeout    time.Duration `yaml:"Timeout"`
}

// Config 应用完整配置
type Config struct {
	App      App       `yaml:"App"`
	Storage  Storage   `yaml:"Storage"`
	NSQ      NSQ       `yaml:"NSQ"`
	Channels []Channel `yaml:"Channels"`
	Modem    Modem     `yaml:"Modem"`
	Email    Email     `yaml:"Email"`
	Discord  Discord   `yaml:"Discord"`
}

// LoadEnv 加载可选的 .env 文件
// 文件不存在时静默跳过
func LoadEnv(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

// ResolvePath 返回配置文件路径, 环境变量优先
func ResolvePath(defaultPath string) string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}
	return defaultPath
}

// Load 读取并解析 YAML 配置文件
func Load(configPath string) (Config, error) {
	fileContent, err := os.ReadFile(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(fileContent)
}

// Parse 解析 YAML 内容, 应用环境变量覆盖并填充默认值
func Parse(content []byte) (Config, error) {
	var config Config
	if err := yaml.Unmarshal(content, &config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyEnvOverrides()

	if err := config.validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// MustLoad 加载 YAML 配置文件
// 加载失败时直接 panic(用于应用启动阶段)
func MustLoad(configPath string) Config {
	config, err := Load(configPath)
	if err != nil {
		panic(err.Error())
	}
	return config
}

// applyEnvOverrides 使用环境变量覆盖敏感或部署相关配置
func (config *Config) applyEnvOverrides() {
	if dsn := os.Getenv(EnvMySQLDSN); dsn != "" {
		config.Storage.MySQL.DSN = dsn
	}

	if addr := os.Getenv(EnvRedisAddr); addr != "" {
		config.Storage.RedisAddr = addr
	}
}

// validate 校验配置并设置默认值
func (config *Config) validate() error {
	config.validateAppConfig()
	config.validateNSQConfig()
	config.validateModemConfig()
	config.validateEmailConfig()

	if err := config.validateStorageConfig(); err != nil {
		return err
	}

	return config.validateChannels()
}

// validateAppConfig 校验应用配置并设置默认值
func (config *Config) validateAppConfig() {
	if config.App.Addr == "" {
		config.App.Addr = DefaultHTTPAddress
	}

	if config.App.RequestTimeout <= 0 {
		config.App.RequestTimeout = DefaultRequestTimeout
	}
}

// validateNSQConfig 校验 NSQ 配置并设置默认值
func (config *Config) validateNSQConfig() {
	if config.NSQ.Topic == "" {
		config.NSQ.Topic = DefaultNSQTopic
	}

	if config.NSQ.Channel == "" {
		config.NSQ.Channel = DefaultNSQChannel
	}

	if config.NSQ.MaxInFlight <= 0 {
		config.NSQ.MaxInFlight = DefaultNSQMaxInFlight
	}

	if config.NSQ.Concurrency <= 0 {
		config.NSQ.Concurrency = DefaultNSQConcurrency
	}

	if config.NSQ.MaxConsumeAttemptsBeforeDLQ <= 0 {
		config.NSQ.MaxConsumeAttemptsBeforeDLQ = DefaultNSQMaxAttempts
	}

	if config.NSQ.DLQTopic == "" {
		config.NSQ.DLQTopic = config.NSQ.Topic + DefaultDLQTopicSuffix
	}

	if config.NSQ.DedupTTL <= 0 {
		config.NSQ.DedupTTL = DefaultNSQDedupTTL
	}
}

// validateModemConfig 校验串口配置并设置默认值
func (config *Config) validateModemConfig() {
	if config.Modem.BaudRate <= 0 {
		config.Modem.BaudRate = DefaultModemBaudRate
	}

	if config.Modem.ReadTimeout <= 0 {
		config.Modem.ReadTimeout = DefaultModemReadTimeout
	}

	if config.Modem.CommandTimeout <= 0 {
		config.Modem.CommandTimeout = DefaultModemCommandTimeout
	}

	if config.Modem.DialTimeout <= 0 {
		config.Modem.DialTimeout = DefaultModemDialTimeout
	}
}

// validateEmailConfig 设置邮件默认主题
func (config *Config) validateEmailConfig() {
	if config.Email.Subject == "" {
		config.Email.Subject = DefaultEmailSubject
	}
}

// validateStorageConfig 校验存储配置并设置默认值
func (config *Config) validateStorageConfig() error {
	if config.Storage.Backend == "" {
		config.Storage.Backend = DefaultStorageBackend
	}

	if config.Storage.Namespace == "" {
		config.Storage.Namespace = DefaultRedisNamespace
	}

	if err := config.validateRecordRetention(); err != nil {
		return err
	}

	switch config.Storage.Backend {
	case BackendMemory:
		return nil
	case BackendRedis:
		if config.Storage.RedisAddr == "" {
			return fmt.Errorf("storage backend %q requires RedisAddr", config.Storage.Backend)
		}
	case BackendMySQL:
		if config.Storage.MySQL.DSN == "" {
			return fmt.Errorf("storage backend %q requires MySQL.DSN", config.Storage.Backend)
		}
	case BackendHybrid:
		if config.Storage.RedisAddr == "" || config.Storage.MySQL.DSN == "" {
			return fmt.Errorf("storage backend %q requires RedisAddr and MySQL.DSN", config.Storage.Backend)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", config.Storage.Backend)
	}

	return nil
}

// validateRecordRetention 记录序列只追加不删除
// 裁剪和过期只允许作用于 hybrid 的 Redis 缓存, 完整序列由 MySQL 保存
func (config *Config) validateRecordRetention() error {
	if config.Storage.MaxKeep < 0 || config.Storage.TTL < 0 {
		return fmt.Errorf("storage MaxKeep and TTL must not be negative")
	}

	if config.Storage.Backend == BackendHybrid {
		return nil
	}

	if config.Storage.MaxKeep > 0 || config.Storage.TTL > 0 {
		return fmt.Errorf("storage backend %q keeps every record; MaxKeep and TTL require backend %q", config.Storage.Backend, BackendHybrid)
	}
	return nil
}

// validateChannels 校验通道类型
// 未配置任何通道时注册四个控制台通道
func (config *Config) validateChannels() error {
	if len(config.Channels) == 0 {
		config.Channels = DefaultChannels()
		return nil
	}

	validTypes := getValidChannelTypes()
	for index, channel := range config.Channels {
		if !validTypes[channel.Type] {
			return fmt.Errorf("invalid type '%s' for channel #%d", channel.Type, index)
		}
	}

	return nil
}

// DefaultChannels 返回默认的控制台通道列表
func DefaultChannels() []Channel {
	return []Channel{
		{Type: ChannelEmail},
		{Type: ChannelSMS},
		{Type: ChannelVoice},
		{Type: ChannelDiscord},
	}
}

// getValidChannelTypes 返回支持的通道类型集合
func getValidChannelTypes() map[string]bool {
	return map[string]bool{
		ChannelEmail:          true,
		ChannelSMS:            true,
		ChannelVoice:          true,
		ChannelDiscord:        true,
		ChannelSMTPEmail:      true,
		ChannelModemSMS:       true,
		ChannelModemVoice:     true,
		ChannelDiscordWebhook: true,
	}
}
