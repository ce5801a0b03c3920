// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormLesson 课程表模型
type GormLesson struct {
	gorm.Model
	Title    string `gorm:"not null"`
	IsActive bool   `gorm:"default:true;index"`
	Words    []GormWord
}

// GormWord 词汇表模型
type GormWord struct {
	gorm.Model
	LessonID uint   `gorm:"index;not null"`
	Word     string `gorm:"not null"`
	Meaning  string `gorm:"not null"`
	IsActive bool   `gorm:"default:true;index"`
}

func (GormLesson) TableName() string { return "lessons" }
func (GormWord) TableName() string   { return "words" }

// ToWord 转换为领域模型
func (w *GormWord) ToWord() Word {
	return Word{
		ID:       int64(w.ID),
		LessonID: int64(w.LessonID),
		Word:     w.Word,
		Meaning:  w.Meaning,
		IsActive: w.IsActive,
	}
}
