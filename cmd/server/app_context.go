package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/redis/go-redis/v9"

	"solid-gateway/internal/channels/discord"
	"solid-gateway/internal/channels/email"
	"solid-gateway/internal/channels/sms"
	"solid-gateway/internal/channels/voice"
	"solid-gateway/internal/config"
	"solid-gateway/internal/database"
	"solid-gateway/internal/httpapi"
	"solid-gateway/internal/idempotency"
	"solid-gateway/internal/message"
	"solid-gateway/internal/metrics"
	"solid-gateway/internal/modem"
	"solid-gateway/internal/notify"
	"solid-gateway/internal/queue"
	"solid-gateway/internal/recorder"
	"solid-gateway/internal/status"
)

// AppContext 应用程序上下文, 持有所有运行期依赖
type AppContext struct {
	Config       config.Config
	RedisClient  *redis.Client
	MySQL        *database.MySQLDB
	Modem        *modem.Modem
	Database     message.Database
	Processor    *message.Processor
	Manager      *notify.Manager
	Statuses     *status.Tracker
	Metrics      *metrics.Collector
	Enqueuer     queue.Enqueuer
	Consumer     *queue.NSQConsumer
	HealthChecks map[string]httpapi.HealthCheck
}

// Close 按依赖倒序关闭所有资源
func (appContext *AppContext) Close() {
	appContext.closeConsumer()
	appContext.closeEnqueuer()
	appContext.closeModem()
	appContext.closeMySQL()
	appContext.closeRedis()
}

// closeConsumer 停止 NSQ 消费者
func (appContext *AppContext) closeConsumer() {
	if appContext.Consumer == nil {
		return
	}
	appContext.Consumer.Stop()
	log.Println("[AppContext] NSQ 消费者已停止")
}

// closeEnqueuer 关闭 NSQ 生产者
func (appContext *AppContext) closeEnqueuer() {
	if appContext.Enqueuer == nil {
		return
	}
	appContext.Enqueuer.Close()
	log.Println("[AppContext] NSQ 生产者已关闭")
}

// closeModem 关闭串口
func (appContext *AppContext) closeModem() {
	if appContext.Modem == nil {
		return
	}
	if err := appContext.Modem.Close(); err != nil {
		log.Printf("[AppContext] 关闭串口失败: %v", err)
		return
	}
	log.Println("[AppContext] 串口已关闭")
}

// closeMySQL 关闭 MySQL 连接池
func (appContext *AppContext) closeMySQL() {
	if appContext.MySQL == nil {
		return
	}
	if err := appContext.MySQL.Close(); err != nil {
		log.Printf("[AppContext] 关闭 MySQL 失败: %v", err)
		return
	}
	log.Println("[AppContext] MySQL 连接已关闭")
}

// closeRedis 关闭 Redis 客户端
func (appContext *AppContext) closeRedis() {
	if appContext.RedisClient == nil {
		return
	}
	if err := appContext.RedisClient.Close(); err != nil {
		log.Printf("[AppContext] 关闭 Redis 失败: %v", err)
		return
	}
	log.Println("[AppContext] Redis 连接已关闭")
}

//
// 应用初始化器
//

// ApplicationInitializer 应用程序初始化器
type ApplicationInitializer struct {
	configuration config.Config
	appContext    *AppContext
	output        io.Writer
	openModem     func(config.Modem) (*modem.Modem, error)
}

// NewApplicationInitializer 创建初始化器实例
func NewApplicationInitializer(configuration config.Config) *ApplicationInitializer {
	return &ApplicationInitializer{
		configuration: configuration,
		appContext: &AppContext{
			Config:       configuration,
			HealthChecks: make(map[string]httpapi.HealthCheck),
		},
		output:    os.Stdout,
		openModem: modem.Open,
	}
}

// InitAppContext 初始化应用上下文
func InitAppContext(ctx context.Context, configuration config.Config) (*AppContext, error) {
	return NewApplicationInitializer(configuration).Initialize(ctx)
}

// Initialize 执行完整的初始化流程, 失败时释放已创建的资源
func (initializer *ApplicationInitializer) Initialize(ctx context.Context) (*AppContext, error) {
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"存储后端", initializer.initializeStorage},
		{"消息处理器", initializer.initializeProcessor},
		{"投递状态", initializer.initializeStatusTracker},
		{"4G 模块", initializer.initializeModem},
		{"通知通道", initializer.initializeChannels},
		{"NSQ 生产者", initializer.initializeProducer},
		{"NSQ 消费者", initializer.initializeConsumer},
	}

	initializer.appContext.Metrics = metrics.NewCollector()

	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			initializer.appContext.Close()
			return nil, fmt.Errorf("初始化%s失败: %w", step.name, err)
		}
	}

	return initializer.appContext, nil
}

// initializeStorage 按配置的后端创建消息记录存储
func (initializer *ApplicationInitializer) initializeStorage(ctx context.Context) error {
	storage := initializer.configuration.Storage

	switch storage.Backend {
	case config.BackendMemory:
		initializer.appContext.Database = message.NewMemoryDatabase()
	case config.BackendRedis:
		redisStore, err := initializer.initializeRedis(ctx)
		if err != nil {
			return err
		}
		initializer.appContext.Database = redisStore
	case config.BackendMySQL:
		mysqlStore, err := initializer.connectMySQL(ctx)
		if err != nil {
			return err
		}
		initializer.appContext.Database = mysqlStore
	case config.BackendHybrid:
		redisStore, err := initializer.initializeRedis(ctx)
		if err != nil {
			return err
		}
		mysqlStore, err := initializer.connectMySQL(ctx)
		if err != nil {
			return err
		}
		initializer.appContext.Database = recorder.NewHybridStore(redisStore, mysqlStore)
	default:
		return fmt.Errorf("unknown storage backend %q", storage.Backend)
	}

	log.Printf("[Initializer] 存储后端: %s", storage.Backend)
	return nil
}

// initializeRedis 连接 Redis 并创建记录存储
func (initializer *ApplicationInitializer) initializeRedis(ctx context.Context) (*recorder.RedisStore, error) {
	storage := initializer.configuration.Storage

	client := redis.NewClient(&redis.Options{Addr: storage.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", storage.RedisAddr, err)
	}

	initializer.appContext.RedisClient = client
	store := recorder.NewRedisStore(client, storage.Namespace, storage.MaxKeep, storage.TTL)
	initializer.appContext.HealthChecks["redis"] = store.Ping

	log.Printf("[Initializer] Redis 已连接: %s", storage.RedisAddr)
	return store, nil
}

// connectMySQL 连接 MySQL, 建表并创建记录存储
func (initializer *ApplicationInitializer) connectMySQL(ctx context.Context) (*recorder.MySQLStore, error) {
	mysqlDB, err := database.NewMySQLDB(ctx, initializer.configuration.Storage.MySQL)
	if err != nil {
		return nil, err
	}
	initializer.appContext.MySQL = mysqlDB

	if err := mysqlDB.InitTables(ctx); err != nil {
		return nil, err
	}

	initializer.appContext.HealthChecks["mysql"] = mysqlDB.PingContext

	log.Println("[Initializer] MySQL 已连接")
	return recorder.NewMySQLStore(mysqlDB), nil
}

// initializeProcessor 创建消息处理器
func (initializer *ApplicationInitializer) initializeProcessor(context.Context) error {
	processor := message.NewProcessor(
		message.NewLogger(initializer.output),
		initializer.appContext.Database,
		message.NewDisplay(initializer.output),
	)
	processor.SetObserver(initializer.appContext.Metrics)

	initializer.appContext.Processor = processor
	return nil
}

// initializeStatusTracker 有 Redis 时状态写入 Redis, 否则保存在进程内
func (initializer *ApplicationInitializer) initializeStatusTracker(context.Context) error {
	var store status.Store = status.NewMemoryStore()
	if initializer.appContext.RedisClient != nil {
		store = status.NewRedisStore(initializer.appContext.RedisClient, initializer.configuration.Storage.Namespace, initializer.configuration.NSQ.DedupTTL)
	}

	initializer.appContext.Statuses = status.NewTracker(store)
	return nil
}

// initializeModem 配置了 modem 通道时打开串口并初始化模块
func (initializer *ApplicationInitializer) initializeModem(ctx context.Context) error {
	if !needsModem(initializer.configuration.Channels) {
		return nil
	}

	device, err := initializer.openModem(initializer.configuration.Modem)
	if err != nil {
		return err
	}
	initializer.appContext.Modem = device

	if err := device.Initialize(ctx); err != nil {
		return err
	}

	log.Printf("[Initializer] 4G 模块已就绪, 运营商: %s", device.Operator())
	return nil
}

// initializeChannels 按配置顺序注册通知通道
func (initializer *ApplicationInitializer) initializeChannels(context.Context) error {
	manager := notify.NewManager()
	manager.SetObserver(initializer.appContext.Metrics)

	for _, channelConfig := range initializer.configuration.Channels {
		if !channelConfig.IsEnabled() {
			log.Printf("[Initializer] 跳过已禁用通道: %s", channelConfig.Type)
			continue
		}

		channel, err := buildChannel(channelConfig, initializer.configuration, initializer.appContext.Modem, initializer.output)
		if err != nil {
			return err
		}
		manager.AddChannel(channel)
	}

	initializer.appContext.Manager = manager
	log.Printf("[Initializer] 已注册通道: %v", manager.Types())
	return nil
}

// initializeProducer 配置了生产者地址时启用异步通知
func (initializer *ApplicationInitializer) initializeProducer(context.Context) error {
	nsqConfig := initializer.configuration.NSQ
	if nsqConfig.ProducerAddr == "" {
		return nil
	}

	producer, err := queue.NewNSQProducer(nsqConfig.ProducerAddr, nsqConfig.Topic)
	if err != nil {
		return err
	}

	initializer.appContext.Enqueuer = producer
	log.Printf("[Initializer] NSQ 生产者已连接: %s topic=%s", nsqConfig.ProducerAddr, nsqConfig.Topic)
	return nil
}

// initializeConsumer 创建异步通知消费者, 启动由 NotifyConsumerManager 负责
func (initializer *ApplicationInitializer) initializeConsumer(context.Context) error {
	nsqConfig := initializer.configuration.NSQ
	if !nsqConfig.ConsumerEnabled {
		return nil
	}

	handler := notify.QueueHandler(initializer.appContext.Manager, initializer.queueOptions()...)
	consumer, err := queue.NewNSQConsumer(queue.ConsumerConfigFrom(nsqConfig, handler))
	if err != nil {
		return err
	}
	initializer.appContext.Consumer = consumer

	if nsqConfig.DLQTopic == "" {
		return nil
	}

	dlqAddress := nsqConfig.ProducerAddr
	if dlqAddress == "" && len(nsqConfig.NsqdTCPAddrs) > 0 {
		dlqAddress = nsqConfig.NsqdTCPAddrs[0]
	}
	if dlqAddress == "" {
		log.Println("[Initializer] 未配置 NSQD 地址, 死信队列未启用")
		return nil
	}

	return consumer.AttachDLQProducer(dlqAddress)
}

// queueOptions 记录投递状态, 已连接 Redis 时启用信封去重
func (initializer *ApplicationInitializer) queueOptions() []notify.QueueOption {
	options := []notify.QueueOption{notify.WithDeliveryRecorder(initializer.appContext.Statuses)}
	if initializer.appContext.RedisClient == nil {
		return options
	}

	checker := idempotency.NewRedisChecker(initializer.appContext.RedisClient, initializer.configuration.Storage.Namespace, "notify")
	log.Printf("[Initializer] 已启用信封去重, TTL=%s", initializer.configuration.NSQ.DedupTTL)
	return append(options, notify.WithDeduplicator(checker, initializer.configuration.NSQ.DedupTTL))
}

//
// 通道工厂
//

// channelDeliverers modem 通道需要的投递能力
type channelDeliverers interface {
	sms.Sender
	voice.Caller
}

// buildChannel 根据配置项创建通知通道
func buildChannel(channelConfig config.Channel, configuration config.Config, device *modem.Modem, output io.Writer) (notify.Channel, error) {
	switch channelConfig.Type {
	case config.ChannelEmail:
		return email.NewConsole(output), nil
	case config.ChannelSMS:
		return sms.NewConsole(output), nil
	case config.ChannelVoice:
		return voice.NewConsole(output), nil
	case config.ChannelDiscord:
		return discord.NewConsole(output), nil
	case config.ChannelSMTPEmail:
		return email.NewSMTP(configuration.Email), nil
	case config.ChannelDiscordWebhook:
		return discord.NewWebhook(configuration.Discord), nil
	case config.ChannelModemSMS, config.ChannelModemVoice:
		if device == nil {
			return nil, fmt.Errorf("channel %s requires an initialized modem", channelConfig.Type)
		}
		return buildModemChannel(channelConfig, device), nil
	default:
		return nil, fmt.Errorf("unknown channel type %q", channelConfig.Type)
	}
}

// buildModemChannel 创建基于 4G 模块的短信或语音通道
func buildModemChannel(channelConfig config.Channel, deliverers channelDeliverers) notify.Channel {
	if channelConfig.Type == config.ChannelModemSMS {
		return sms.NewModem(deliverers, channelConfig.Target)
	}
	return voice.NewModem(deliverers, channelConfig.Target)
}

// needsModem 是否存在启用的 modem 通道
func needsModem(channels []config.Channel) bool {
	for _, channel := range channels {
		if !channel.IsEnabled() {
			continue
		}
		if channel.Type == config.ChannelModemSMS || channel.Type == config.ChannelModemVoice {
			return true
		}
	}
	return false
}
