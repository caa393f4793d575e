// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Tika          TikaConfig          `mapstructure:"tika"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Ingest        IngestConfig        `mapstructure:"ingest"`
	Retrieval     RetrievalConfig     `mapstructure:"retrieval"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
// 令牌由上游统一认证服务签发，本服务只做校验，因此只需要共享密钥。
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers      string `mapstructure:"brokers"`
	IngestTopic  string `mapstructure:"ingest_topic"`
	InsightTopic string `mapstructure:"insight_topic"`
	GroupID      string `mapstructure:"group_id"`
}

// TikaConfig 存储 Tika 服务器相关的配置。
type TikaConfig struct {
	ServerURL string `mapstructure:"server_url"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
// ES 仅作为问答洞察事件的分析存储，不参与检索打分。
type ElasticsearchConfig struct {
	Addresses    string `mapstructure:"addresses"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	InsightIndex string `mapstructure:"insight_index"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
}

// LLMConfig 存储大语言模型相关的配置。
// FallbackModels 是主模型失败后依次尝试的候选模型列表。
type LLMConfig struct {
	APIKey         string              `mapstructure:"api_key"`
	BaseURL        string              `mapstructure:"base_url"`
	Model          string              `mapstructure:"model"`
	FallbackModels []string            `mapstructure:"fallback_models"`
	Generation     LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// IngestConfig 配置文本分块行为。
type IngestConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
}

// RetrievalConfig 配置混合检索与证据判定的阈值。
// 四个证据阈值是经验值，修改它们会实质性改变回答模式的分布，默认值不要轻易调整。
type RetrievalConfig struct {
	TopK            int     `mapstructure:"top_k"`
	SemanticWeight  float64 `mapstructure:"semantic_weight"`
	LexicalWeight   float64 `mapstructure:"lexical_weight"`
	MinEvidence     float64 `mapstructure:"min_evidence"`
	StrongEvidence  float64 `mapstructure:"strong_evidence"`
	Ambiguous       float64 `mapstructure:"ambiguous"`
	AmbiguityMaxGap float64 `mapstructure:"ambiguity_max_gap"`
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}
}

// setDefaults 注册各项配置的默认值，配置缺省时保持既定行为。
func setDefaults() {
	viper.SetDefault("ingest.chunk_size", 1000)
	viper.SetDefault("ingest.chunk_overlap", 100)

	viper.SetDefault("retrieval.top_k", 10)
	viper.SetDefault("retrieval.semantic_weight", 0.65)
	viper.SetDefault("retrieval.lexical_weight", 0.35)
	viper.SetDefault("retrieval.min_evidence", 0.20)
	viper.SetDefault("retrieval.strong_evidence", 0.35)
	viper.SetDefault("retrieval.ambiguous", 0.45)
	viper.SetDefault("retrieval.ambiguity_max_gap", 0.04)

	viper.SetDefault("elasticsearch.insight_index", "agent_insights")
	viper.SetDefault("kafka.group_id", "edu-agent-go-consumer")
}
