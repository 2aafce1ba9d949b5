package main

import (
	"log"

	"github.com/Bulletdev/Mindfulness/internal/config"
	"github.com/Bulletdev/Mindfulness/internal/db"
	"github.com/Bulletdev/Mindfulness/internal/handler"
	"github.com/Bulletdev/Mindfulness/internal/router"
	"github.com/Bulletdev/Mindfulness/internal/service"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	var provider service.SentimentProvider
	switch cfg.SentimentProvider {
	case "cloud":
		if cfg.SentimentAPIURL == "" || cfg.SentimentAPIKey == "" {
			log.Fatal("SENTIMENT_API_URL and SENTIMENT_API_KEY are required for the cloud sentiment provider")
		}
		provider = service.NewCloudSentimentProvider(cfg.SentimentAPIURL, cfg.SentimentAPIKey)
	case "off":
		provider = nil
	default:
		provider = service.NewLexiconSentimentProvider()
	}

	api := handler.NewAPI(db.DB, provider, cfg.SentimentLanguage)

	// 设置并运行 Gin 服务器
	r := router.SetupRouter(api, cfg.SessionSecret)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
