package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openmarket-os/marketd/internal/core/application"
	"github.com/openmarket-os/marketd/internal/core/ports"
	custodyclient "github.com/openmarket-os/marketd/internal/infrastructure/custody"
	"github.com/openmarket-os/marketd/internal/infrastructure/db"
	inmemorylivestore "github.com/openmarket-os/marketd/internal/infrastructure/live-store/inmemory"
	redislivestore "github.com/openmarket-os/marketd/internal/infrastructure/live-store/redis"
	timescheduler "github.com/openmarket-os/marketd/internal/infrastructure/scheduler/gocron"
	walletclient "github.com/openmarket-os/marketd/internal/infrastructure/wallet"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var (
	supportedDbs = supportedType{
		"badger": {},
	}
	supportedSchedulers = supportedType{
		"gocron": {},
	}
	supportedLiveStores = supportedType{
		"inmemory": {},
		"redis":    {},
	}
)

type Config struct {
	Datadir  string
	Port     uint32
	LogLevel int

	DbType              string
	DbDir               string
	SchedulerType       string
	LiveStoreType       string
	RedisUrl            string
	RedisTxNumOfRetries int

	WalletUrl  string
	CustodyUrl string

	CustodyCallTimeout int64
	PendingAlertAfter  int64

	repo      ports.RepoManager
	svc       application.Service
	wallet    ports.WalletService
	custody   ports.CustodyService
	scheduler ports.SchedulerService
	liveStore ports.LiveStore
}

func (c *Config) String() string {
	json, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	defaultDatadir             = defaultAppDataDir("marketd")
	DefaultPort                = 7080
	defaultDbType              = "badger"
	defaultSchedulerType       = "gocron"
	defaultLiveStoreType       = "inmemory"
	defaultRedisTxNumOfRetries = 10
	defaultLogLevel            = 4
	defaultCustodyCallTimeout  = 30  // seconds
	defaultPendingAlertAfter   = 300 // seconds
)

// env returns a list of strings prefixed with `MARKETD_`.
// This is used as a syntax sugar for defining env vars.
func env(values ...string) []string {
	envs := make([]string, len(values))

	for i, value := range values {
		envs[i] = fmt.Sprintf("MARKETD_%s", value)
	}

	return envs
}

var (
	Datadir = &cli.StringFlag{
		Usage: "Directory to store data",
		Name:  "datadir", EnvVars: env("DATADIR"),
		Value: defaultDatadir,
	}

	Port = &cli.UintFlag{
		Usage: "Port to listen on",
		Name:  "port", EnvVars: env("PORT"),
		Value: uint(DefaultPort),
	}

	LogLevel = &cli.IntFlag{
		Usage: "Logging level (0-6, where 6 is trace)",
		Name:  "log-level", EnvVars: env("LOG_LEVEL"),
		Value: defaultLogLevel,
	}

	DbType = &cli.StringFlag{
		Usage: "Database type (badger)",
		Name:  "db-type", EnvVars: env("DB_TYPE"),
		Value: defaultDbType,
	}

	SchedulerType = &cli.StringFlag{
		Usage: "Scheduler type (gocron)",
		Name:  "scheduler-type", EnvVars: env("SCHEDULER_TYPE"),
		Value: defaultSchedulerType,
	}

	LiveStoreType = &cli.StringFlag{
		Usage: "Cache service type (redis, inmemory)",
		Name:  "live-store-type", EnvVars: env("LIVE_STORE_TYPE"),
		Value: defaultLiveStoreType,
	}

	RedisUrl = &cli.StringFlag{
		Usage: "Redis db connection url if MARKETD_LIVE_STORE_TYPE is set to redis",
		Name:  "redis-url", EnvVars: env("REDIS_URL"),
	}

	RedisTxNumOfRetries = &cli.IntFlag{
		Usage: "Maximum number of retries for Redis write operations in case of conflicts",
		Name:  "redis-num-of-retries", EnvVars: env("REDIS_NUM_OF_RETRIES"),
		Value: defaultRedisTxNumOfRetries,
	}

	WalletUrl = &cli.StringFlag{
		Usage: "The wallet service url used to refund buyers",
		Name:  "wallet-url", EnvVars: env("WALLET_URL"),
	}

	CustodyUrl = &cli.StringFlag{
		Usage: "The asset custody service url used to transfer assets",
		Name:  "custody-url", EnvVars: env("CUSTODY_URL"),
	}

	// TODO: Make this a cli.DurationFlag.
	CustodyCallTimeout = &cli.Int64Flag{
		Usage: "Timeout in seconds for asset transfer calls to the custody service",
		Name:  "custody-call-timeout", EnvVars: env("CUSTODY_CALL_TIMEOUT"),
		Value: int64(defaultCustodyCallTimeout),
	}

	// TODO: Make this a cli.DurationFlag.
	PendingAlertAfter = &cli.Int64Flag{
		Usage: "Age in seconds after which a pending settlement is reported as stuck",
		Name:  "pending-alert-after", EnvVars: env("PENDING_ALERT_AFTER"),
		Value: int64(defaultPendingAlertAfter),
	}
)

var Flags = []cli.Flag{
	Datadir,
	Port,
	LogLevel,
	DbType,
	SchedulerType,
	LiveStoreType,
	RedisUrl,
	RedisTxNumOfRetries,
	WalletUrl,
	CustodyUrl,
	CustodyCallTimeout,
	PendingAlertAfter,
}

func LoadConfig(c *cli.Context) (*Config, error) {
	if err := initDatadir(c); err != nil {
		return nil, fmt.Errorf("failed to create datadir: %s", err)
	}

	dbPath := filepath.Join(c.String(Datadir.Name), "db")

	var redisUrl string
	if c.String(LiveStoreType.Name) == "redis" {
		redisUrl = c.String(RedisUrl.Name)
		if redisUrl == "" {
			return nil, fmt.Errorf("live store type set to 'redis' but redis url is missing")
		}
	}

	return &Config{
		Datadir:             c.String(Datadir.Name),
		Port:                uint32(c.Uint(Port.Name)),
		LogLevel:            c.Int(LogLevel.Name),
		DbType:              c.String(DbType.Name),
		DbDir:               dbPath,
		SchedulerType:       c.String(SchedulerType.Name),
		LiveStoreType:       c.String(LiveStoreType.Name),
		RedisUrl:            redisUrl,
		RedisTxNumOfRetries: c.Int(RedisTxNumOfRetries.Name),
		WalletUrl:           c.String(WalletUrl.Name),
		CustodyUrl:          c.String(CustodyUrl.Name),
		CustodyCallTimeout:  c.Int64(CustodyCallTimeout.Name),
		PendingAlertAfter:   c.Int64(PendingAlertAfter.Name),
	}, nil
}

func initDatadir(c *cli.Context) error {
	datadir := c.String(Datadir.Name)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0o755)
	}
	return nil
}

func defaultAppDataDir(appName string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "."+appName)
	}
	return filepath.Join(homeDir, "."+appName)
}

func (c *Config) Validate() error {
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if !supportedSchedulers.supports(c.SchedulerType) {
		return fmt.Errorf(
			"scheduler type not supported, please select one of: %s",
			supportedSchedulers,
		)
	}
	if len(c.LiveStoreType) > 0 && !supportedLiveStores.supports(c.LiveStoreType) {
		return fmt.Errorf(
			"live store type not supported, please select one of: %s",
			supportedLiveStores,
		)
	}
	if c.CustodyCallTimeout < 1 {
		return fmt.Errorf("invalid custody call timeout, must be at least 1 second")
	}
	if c.PendingAlertAfter < 1 {
		return fmt.Errorf("invalid pending alert threshold, must be at least 1 second")
	}

	if err := c.repoManager(); err != nil {
		return err
	}
	if err := c.walletService(); err != nil {
		return err
	}
	if err := c.custodyService(); err != nil {
		return err
	}
	if err := c.liveStoreService(); err != nil {
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) AppService() (application.Service, error) {
	if c.svc == nil {
		if err := c.appService(); err != nil {
			return nil, err
		}
	}
	return c.svc, nil
}

func (c *Config) WalletService() ports.WalletService {
	return c.wallet
}

func (c *Config) repoManager() error {
	var dataStoreConfig []interface{}
	logger := log.New()

	switch c.DbType {
	case "badger":
		dataStoreConfig = []interface{}{c.DbDir, logger}
	default:
		return fmt.Errorf("unknown db type")
	}

	svc, err := db.NewService(db.ServiceConfig{
		DataStoreType:   c.DbType,
		DataStoreConfig: dataStoreConfig,
	})
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) walletService() error {
	if c.WalletUrl == "" {
		return fmt.Errorf("missing wallet service url")
	}

	walletSvc, err := walletclient.NewService(
		c.WalletUrl, time.Duration(c.CustodyCallTimeout)*time.Second,
	)
	if err != nil {
		return err
	}

	c.wallet = walletSvc
	return nil
}

func (c *Config) custodyService() error {
	if c.CustodyUrl == "" {
		return fmt.Errorf("missing custody service url")
	}

	custodySvc, err := custodyclient.NewService(
		c.CustodyUrl, time.Duration(c.CustodyCallTimeout)*time.Second,
	)
	if err != nil {
		return err
	}

	c.custody = custodySvc
	return nil
}

func (c *Config) liveStoreService() error {
	var liveStoreSvc ports.LiveStore
	switch c.LiveStoreType {
	case "inmemory":
		liveStoreSvc = inmemorylivestore.NewLiveStore()
	case "redis":
		redisOpts, err := redis.ParseURL(c.RedisUrl)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(redisOpts)
		liveStoreSvc = redislivestore.NewLiveStore(rdb, c.RedisTxNumOfRetries)
	default:
		return fmt.Errorf("unknown liveStore type")
	}

	c.liveStore = liveStoreSvc
	return nil
}

func (c *Config) schedulerService() error {
	var svc ports.SchedulerService
	switch c.SchedulerType {
	case "gocron":
		svc = timescheduler.NewScheduler()
	default:
		return fmt.Errorf("unknown scheduler type")
	}

	c.scheduler = svc
	return nil
}

func (c *Config) appService() error {
	svc, err := application.NewService(
		c.wallet, c.custody, c.repo, c.scheduler, c.liveStore,
		time.Duration(c.CustodyCallTimeout)*time.Second,
		time.Duration(c.PendingAlertAfter)*time.Second,
	)
	if err != nil {
		return err
	}

	c.svc = svc
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
