package kafka

import (
	"strings"
	"time"

	"github.com/Shopify/sarama"
)

// Config is built in code from the environment, no YAML layer.
type Config struct {
	Brokers               []string
	GroupID               string
	ProducerRetries       int
	ProducerCompression   string // none/snappy/lz4/zstd
	ConsumerInitialOffset string // newest/oldest
	Version               sarama.KafkaVersion
}

func DefaultConfig() Config {
	return Config{
		Brokers:               []string{"127.0.0.1:9092"},
		GroupID:               "hub-gateway",
		ProducerRetries:       5,
		ProducerCompression:   "snappy",
		ConsumerInitialOffset: "newest",
		Version:               sarama.V2_1_0_0,
	}
}

func buildSaramaConfig(c Config) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = c.Version

	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	if c.ProducerRetries <= 0 {
		c.ProducerRetries = 1
	}
	cfg.Producer.Retry.Max = c.ProducerRetries
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	switch strings.ToLower(c.ProducerCompression) {
	case "snappy":
		cfg.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		cfg.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		cfg.Producer.Compression = sarama.CompressionZSTD
	default:
		cfg.Producer.Compression = sarama.CompressionNone
	}

	switch strings.ToLower(c.ConsumerInitialOffset) {
	case "oldest":
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	default:
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Return.Errors = true

	cfg.Net.DialTimeout = 10 * time.Second
	cfg.Net.ReadTimeout = 30 * time.Second
	cfg.Net.WriteTimeout = 30 * time.Second
	return cfg
}

// Client bundles the sarama client with the config it was built from.
type Client struct {
	cfg Config
	c   sarama.Client
}

func NewClient(cfg Config) (*Client, error) {
	c, err := sarama.NewClient(cfg.Brokers, buildSaramaConfig(cfg))
	if err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, c: c}, nil
}

func (k *Client) Close() error { return k.c.Close() }
