package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	SQLitePath  string
	// JWT Configuration
	JWTSecret string
	// Barter tunables
	MinReputation   float64
	FairTradeMaxPct float64
	BlockedTradePct float64
	// Kafka Configuration
	KafkaBrokers        []string
	KafkaTopicProposals string
	KafkaTopicExchanges string
	KafkaClientID       string
	KafkaAcks           string
	KafkaRetries        int
	UseKafka            bool
	// Redis Configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	UseCache      bool
	CacheTTL      int
	// MongoDB notification store
	MongoURI         string
	MongoDatabase    string
	UseNotifications bool
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Parse Kafka brokers (comma-separated)
	kafkaBrokersStr := getEnv("KAFKA_BROKERS", "localhost:9093")
	kafkaBrokers := strings.Split(kafkaBrokersStr, ",")
	for i, broker := range kafkaBrokers {
		kafkaBrokers[i] = strings.TrimSpace(broker)
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		SQLitePath:  getEnv("SQLITE_PATH", "./agrobarter.db"),
		// JWT Configuration
		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-change-in-production-min-32-chars"),
		// Barter tunables
		MinReputation:   getEnvAsFloat("BARTER_MIN_REPUTATION", 3),
		FairTradeMaxPct: getEnvAsFloat("BARTER_FAIR_MAX_PCT", 20),
		BlockedTradePct: getEnvAsFloat("BARTER_BLOCKED_MIN_PCT", 40),
		// Kafka Configuration
		KafkaBrokers:        kafkaBrokers,
		KafkaTopicProposals: getEnv("KAFKA_TOPIC_PROPOSALS", "barter.proposals"),
		KafkaTopicExchanges: getEnv("KAFKA_TOPIC_EXCHANGES", "barter.exchanges"),
		KafkaClientID:       getEnv("KAFKA_CLIENT_ID", "agrobarter-api"),
		KafkaAcks:           getEnv("KAFKA_ACKS", "all"),
		KafkaRetries:        getEnvAsInt("KAFKA_RETRIES", 3),
		UseKafka:            getEnvAsBool("USE_KAFKA", true),
		// Redis Configuration
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		UseCache:      getEnvAsBool("USE_CACHE", true),
		CacheTTL:      getEnvAsInt("CACHE_TTL_SECONDS", 60),
		// MongoDB notification store
		MongoURI:         getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:    getEnv("MONGO_DATABASE", "agrobarter"),
		UseNotifications: getEnvAsBool("USE_NOTIFICATIONS", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return result
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return result
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return result
}
