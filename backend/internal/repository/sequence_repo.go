package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"valve-vault/backend/internal/model"
)

// SequenceRepository 命名计数器数据访问接口
type SequenceRepository interface {
	// Next 递增并返回计数器的下一个值，必须在事务内调用
	Next(ctx context.Context, name string) (int64, error)
}

type sequenceRepo struct {
	db *gorm.DB
}

func NewSequenceRepo(db *gorm.DB) SequenceRepository {
	return &sequenceRepo{db: db}
}

func (r *sequenceRepo) Next(ctx context.Context, name string) (int64, error) {
	db := r.db.WithContext(ctx)

	// 首次使用时创建计数器行，已存在则忽略
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Sequence{Name: name}).Error; err != nil {
		return 0, err
	}

	// 行锁串行化并发取号，锁持有到事务结束
	var seq model.Sequence
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", name).
		First(&seq).Error; err != nil {
		return 0, err
	}

	next := seq.Value + 1
	if err := db.Model(&model.Sequence{}).
		Where("name = ?", name).
		Update("value", next).Error; err != nil {
		return 0, err
	}
	return next, nil
}
