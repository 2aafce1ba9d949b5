package config

import (
	"fmt"
	"os"
	"strings"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr        string
	Port              string
	DatabasePath      string
	SessionSecret     string
	GinMode           string
	SentimentProvider string
	SentimentAPIURL   string
	SentimentAPIKey   string
	SentimentLanguage string
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	databasePath := strings.TrimSpace(os.Getenv("DATABASE_PATH"))
	if databasePath == "" {
		databasePath = "mindfulness.db"
	}

	sessionSecret := strings.TrimSpace(os.Getenv("SESSION_SECRET"))
	if sessionSecret == "" {
		sessionSecret = "mindfulness-dev-secret"
	}

	ginMode := strings.TrimSpace(os.Getenv("GIN_MODE"))
	if ginMode == "" {
		ginMode = "release"
	}

	// lexicon 为本地词表分析；cloud 需要同时配置 API 地址与密钥；off 关闭情感分析
	sentimentProvider := strings.TrimSpace(strings.ToLower(os.Getenv("SENTIMENT_PROVIDER")))
	if sentimentProvider == "" {
		sentimentProvider = "lexicon"
	}

	sentimentLanguage := strings.TrimSpace(os.Getenv("SENTIMENT_LANGUAGE"))
	if sentimentLanguage == "" {
		sentimentLanguage = "zh"
	}

	return AppConfig{
		ListenAddr:        listenAddr,
		Port:              port,
		DatabasePath:      databasePath,
		SessionSecret:     sessionSecret,
		GinMode:           ginMode,
		SentimentProvider: sentimentProvider,
		SentimentAPIURL:   strings.TrimSpace(os.Getenv("SENTIMENT_API_URL")),
		SentimentAPIKey:   strings.TrimSpace(os.Getenv("SENTIMENT_API_KEY")),
		SentimentLanguage: sentimentLanguage,
	}
}
