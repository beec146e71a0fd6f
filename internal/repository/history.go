package repository

import (
	"mirrord/internal/db"
	"mirrord/internal/model"
	"time"
)

type HistoryRepository struct{}

func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{}
}

func (r *HistoryRepository) Save(result model.MirrorResult) error {
	errMsg := ""
	if result.Err != nil {
		errMsg = result.Err.Error()
	}

	history := model.History{
		Outcome:    result.Outcome,
		SrcPath:    result.SrcPath,
		DstPath:    result.DstPath,
		ErrMsg:     errMsg,
		MirroredAt: time.Now(),
	}

	return db.DB.Create(&history).Error
}

type Stats struct {
	Total   int64
	Copied  int64
	Skipped int64
	Failed  int64
}

func (r *HistoryRepository) GetStats() (Stats, error) {
	var stats Stats
	if err := db.DB.Model(&model.History{}).Count(&stats.Total).Error; err != nil {
		return stats, err
	}

	if err := db.DB.Model(&model.History{}).
		Where("outcome = ?", model.OutcomeCopied).
		Count(&stats.Copied).Error; err != nil {
		return stats, err
	}

	if err := db.DB.Model(&model.History{}).
		Where("outcome = ?", model.OutcomeFailed).
		Count(&stats.Failed).Error; err != nil {
		return stats, err
	}

	stats.Skipped = stats.Total - stats.Copied - stats.Failed
	return stats, nil
}

func (r *HistoryRepository) GetRecent(limit int) ([]model.History, error) {
	var histories []model.History
	result := db.DB.
		Order("mirrored_at desc").
		Limit(limit).
		Find(&histories)

	return histories, result.Error
}

func (r *HistoryRepository) GetFailed() ([]model.History, error) {
	var histories []model.History
	result := db.DB.
		Where("outcome = ?", model.OutcomeFailed).
		Order("mirrored_at desc").
		Find(&histories)

	return histories, result.Error
}
