package handler

import (
	"github.com/Bulletdev/Mindfulness/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db           *gorm.DB
	users        *service.UserService
	habits       *service.HabitService
	habitEntries *service.HabitEntryService
	journal      *service.JournalService
	insights     *service.InsightService
	recommender  *service.RecommenderService
}

// NewAPI constructs a handler set with shared services.
// sentimentProvider 可为 nil，此时日记写入不触发情感分析。
func NewAPI(db *gorm.DB, sentimentProvider service.SentimentProvider, language string) *API {
	var sentimentService *service.SentimentService
	if sentimentProvider != nil {
		sentimentService = service.NewSentimentService(db, sentimentProvider, language)
	}

	return &API{
		db:           db,
		users:        service.NewUserService(db),
		habits:       service.NewHabitService(db),
		habitEntries: service.NewHabitEntryService(db),
		journal:      service.NewJournalService(db, sentimentService),
		insights:     service.NewInsightService(db),
		recommender:  service.NewRecommenderService(db),
	}
}

// DB exposes the underlying gorm instance for legacy paths.
func (a *API) DB() *gorm.DB {
	return a.db
}
