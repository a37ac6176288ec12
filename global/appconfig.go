package global

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig is assembled from the environment at startup. One struct,
// no config file layer.
type AppConfig struct {
	HTTPAddr      string
	GatewayNodeID string
	NodeID        int64

	KeySetURL     string
	JwtIssuer     string
	KeyRefresh    time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NatsServers  []string
	NatsUsername string
	NatsPassword string

	KafkaBrokers []string
	KafkaGroupID string

	FanoutWorkers int
}

var appCfg *AppConfig

// Config returns the process configuration, loading it on first use.
func Config() *AppConfig {
	if appCfg == nil {
		appCfg = loadFromEnv()
	}
	return appCfg
}

func loadFromEnv() *AppConfig {
	return &AppConfig{
		HTTPAddr:      envStr("GW_HTTP_ADDR", ":8090"),
		GatewayNodeID: envStr("GW_NODE_ID", "gateway-1"),
		NodeID:        int64(envInt("GW_SNOWFLAKE_NODE", 1)),

		KeySetURL:  envStr("GW_JWKS_URL", ""),
		JwtIssuer:  envStr("GW_JWT_ISSUER", ""),
		KeyRefresh: envDur("GW_JWKS_REFRESH", 15*time.Minute),

		RedisAddr:     envStr("GW_REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: envStr("GW_REDIS_PASSWORD", ""),
		RedisDB:       envInt("GW_REDIS_DB", 0),

		NatsServers:  envList("GW_NATS_SERVERS", ""),
		NatsUsername: envStr("GW_NATS_USER", ""),
		NatsPassword: envStr("GW_NATS_PASSWORD", ""),

		KafkaBrokers: envList("GW_KAFKA_BROKERS", ""),
		KafkaGroupID: envStr("GW_KAFKA_GROUP", "hub-gateway"),

		FanoutWorkers: envInt("GW_FANOUT_WORKERS", 8),
	}
}

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// envList splits a comma-joined value; empty default means nil.
func envList(key, def string) []string {
	v := envStr(key, def)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
