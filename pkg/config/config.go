package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Neo4j    Neo4jConfig
	Milvus   MilvusConfig
	SQLite   SQLiteConfig
	Redis    RedisConfig
	LLM      LLMConfig
	Routing  RoutingConfig
	Gaps     GapsConfig
	Research ResearchConfig
	Vendors  VendorsConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

type MilvusConfig struct {
	Endpoint       string
	APIKey         string
	CollectionName string
	VectorDim      int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type LLMConfig struct {
	Provider       string
	Model          string
	APIKey         string
	Temperature    float32
	MaxTokens      int
	TimeoutSec     int
	EmbeddingModel string
	EmbeddingDim   int
}

// RoutingConfig carries the coverage thresholds and scoring weights. These
// are injected at construction so boundary values can be exercised in tests
// and tuned without redeploying logic.
type RoutingConfig struct {
	StrongThreshold   float64
	ModerateThreshold float64
	ThinThreshold     float64
	TopK              int
	RetrievalTimeout  int
	HandlerTimeout    int
	Weights           WeightsConfig
	CacheTTLSec       int
}

type WeightsConfig struct {
	Similarity float64
	Count      float64
	Quality    float64
	Breadth    float64
}

type GapsConfig struct {
	// EnqueueSuppressionWindowSec bounds how often one fingerprint may
	// re-enter the research queue. Fingerprint identity itself never expires.
	EnqueueSuppressionWindowSec int
	FaultCodeBonus              int
}

type ResearchConfig struct {
	QueueName string
}

type VendorsConfig struct {
	// Known maps a lowercased vendor name to its documentation domain.
	Known map[string]string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/fieldmate")

	viper.SetEnvPrefix("FIELDMATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func (r RoutingConfig) RetrievalTimeoutDuration() time.Duration {
	return time.Duration(r.RetrievalTimeout) * time.Second
}

func (r RoutingConfig) HandlerTimeoutDuration() time.Duration {
	return time.Duration(r.HandlerTimeout) * time.Second
}

func (g GapsConfig) EnqueueSuppressionWindow() time.Duration {
	return time.Duration(g.EnqueueSuppressionWindowSec) * time.Second
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("neo4j.uri", "bolt://localhost:7687")
	viper.SetDefault("neo4j.username", "neo4j")
	viper.SetDefault("neo4j.password", "password")
	viper.SetDefault("neo4j.database", "neo4j")

	viper.SetDefault("milvus.endpoint", "localhost:19530")
	viper.SetDefault("milvus.collectionName", "knowledge_items")
	viper.SetDefault("milvus.vectorDim", 1536)

	viper.SetDefault("sqlite.path", "./data/fieldmate.db")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-4")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.maxTokens", 2048)
	viper.SetDefault("llm.timeoutSec", 60)
	viper.SetDefault("llm.embeddingModel", "text-embedding-3-large")
	viper.SetDefault("llm.embeddingDim", 1536)

	viper.SetDefault("routing.strongThreshold", 0.80)
	viper.SetDefault("routing.moderateThreshold", 0.60)
	viper.SetDefault("routing.thinThreshold", 0.40)
	viper.SetDefault("routing.topK", 5)
	viper.SetDefault("routing.retrievalTimeout", 5)
	viper.SetDefault("routing.handlerTimeout", 30)
	viper.SetDefault("routing.weights.similarity", 0.40)
	viper.SetDefault("routing.weights.count", 0.20)
	viper.SetDefault("routing.weights.quality", 0.25)
	viper.SetDefault("routing.weights.breadth", 0.15)
	viper.SetDefault("routing.cacheTTLSec", 300)

	viper.SetDefault("gaps.enqueueSuppressionWindowSec", 3600)
	viper.SetDefault("gaps.faultCodeBonus", 20)

	viper.SetDefault("research.queueName", "research:requests")

	viper.SetDefault("vendors.known", map[string]string{
		"carrier":    "carrier.com",
		"trane":      "trane.com",
		"daikin":     "daikin.com",
		"mitsubishi": "mitsubishielectric.com",
		"grundfos":   "grundfos.com",
		"danfoss":    "danfoss.com",
		"siemens":    "siemens.com",
		"abb":        "abb.com",
		"york":       "york.com",
		"honeywell":  "honeywell.com",
	})

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
