package redis

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/getevo/evo/v2/lib/settings"
	"github.com/redis/go-redis/v9"
)

var (
	// Client is the universal Redis client that works with both single nodes and clusters
	Client redis.UniversalClient
	ctx    = context.Background()
)

// RedisConfig holds the Redis configuration
type RedisConfig struct {
	Addresses    []string      `json:"addresses"`
	Password     string        `json:"password"`
	DB           int           `json:"db"`
	MaxRetries   int           `json:"max_retries"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	PoolSize     int           `json:"pool_size"`
	MinIdleConns int           `json:"min_idle_conns"`
	// Cluster-specific settings
	RouteByLatency bool `json:"route_by_latency"`
	RouteRandomly  bool `json:"route_randomly"`
	// Sentinel-specific settings (MasterName triggers sentinel mode)
	MasterName       string `json:"master_name"`
	SentinelPassword string `json:"sentinel_password"`
}

// Initialize creates a new Redis universal client connection.
// Supports single node, cluster and sentinel configurations:
//
//	REDIS:
//	  ADDRESS: "localhost:6379"        # single node
//	  ADDRESSES: "r1:6379,r2:6379"     # cluster
//	  MASTER_NAME: "mymaster"          # sentinel mode
func Initialize() error {
	config := loadConfig()

	// Rate limiting and closure caching degrade gracefully without Redis
	if len(config.Addresses) == 0 {
		log.Println("Redis not configured. Rate limiting and caching will be disabled.")
		return nil
	}

	opts := &redis.UniversalOptions{
		Addrs:        config.Addresses,
		Password:     config.Password,
		DB:           config.DB,
		MaxRetries:   config.MaxRetries,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		// Cluster options
		RouteByLatency: config.RouteByLatency,
		RouteRandomly:  config.RouteRandomly,
		// Sentinel options (MasterName triggers failover mode)
		MasterName:       config.MasterName,
		SentinelPassword: config.SentinelPassword,
	}

	Client = redis.NewUniversalClient(opts)

	testCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := Client.Ping(testCtx).Err(); err != nil {
		log.Printf("Warning: Redis connection failed: %v. Rate limiting and caching will be disabled.", err)
		Client = nil
		return nil // Don't fail startup if Redis is unavailable
	}

	switch len(config.Addresses) {
	case 1:
		log.Printf("Redis connected (single node: %s)", config.Addresses[0])
	default:
		log.Printf("Redis Cluster connected (%d nodes)", len(config.Addresses))
	}

	return nil
}

// loadConfig reads Redis configuration from settings
func loadConfig() RedisConfig {
	config := RedisConfig{
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	}

	appendAddresses := func(raw string) {
		for _, addr := range strings.Split(raw, ",") {
			addr = strings.TrimSpace(addr)
			if addr != "" {
				config.Addresses = append(config.Addresses, addr)
			}
		}
	}

	if raw := settings.Get("REDIS.ADDRESSES").String(); raw != "" && raw != "[]" {
		appendAddresses(raw)
	}
	if len(config.Addresses) == 0 {
		if raw := settings.Get("REDIS.ADDRESS").String(); raw != "" {
			appendAddresses(raw)
		}
	}

	config.Password = settings.Get("REDIS.PASSWORD").String()
	config.DB = settings.Get("REDIS.DB").Int()

	if poolSize := settings.Get("REDIS.POOL_SIZE").Int(); poolSize > 0 {
		config.PoolSize = poolSize
	}
	if minIdle := settings.Get("REDIS.MIN_IDLE_CONNS").Int(); minIdle > 0 {
		config.MinIdleConns = minIdle
	}
	if maxRetries := settings.Get("REDIS.MAX_RETRIES").Int(); maxRetries > 0 {
		config.MaxRetries = maxRetries
	}

	config.RouteByLatency = settings.Get("REDIS.ROUTE_BY_LATENCY").Bool()
	config.RouteRandomly = settings.Get("REDIS.ROUTE_RANDOMLY").Bool()

	config.MasterName = settings.Get("REDIS.MASTER_NAME").String()
	config.SentinelPassword = settings.Get("REDIS.SENTINEL_PASSWORD").String()

	return config
}

// IsAvailable returns true if Redis client is connected
func IsAvailable() bool {
	if Client == nil {
		return false
	}
	return Client.Ping(ctx).Err() == nil
}

// Close gracefully closes the Redis connection
func Close() error {
	if Client != nil {
		return Client.Close()
	}
	return nil
}
