// persistence/gorm_postgresql.go
package persistence

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/quizserver/models"
)

// GormPostgreSQL 使用GORM的词库实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &GormPostgreSQL{db: db}, nil
}

// ActiveWordsByLessons 返回给定课程下所有启用的词汇
func (p *GormPostgreSQL) ActiveWordsByLessons(lessonIDs []int64) ([]models.Word, error) {
	var rows []models.GormWord
	err := p.db.
		Joins("JOIN lessons ON lessons.id = words.lesson_id").
		Where("words.lesson_id IN ?", lessonIDs).
		Where("words.is_active = ?", true).
		Where("lessons.is_active = ?", true).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	words := make([]models.Word, 0, len(rows))
	for i := range rows {
		words = append(words, rows[i].ToWord())
	}
	return words, nil
}

// ActiveLessons 校验课程存在且启用
func (p *GormPostgreSQL) ActiveLessons(lessonIDs []int64) ([]models.Lesson, error) {
	var rows []models.GormLesson
	err := p.db.
		Where("id IN ?", lessonIDs).
		Where("is_active = ?", true).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	lessons := make([]models.Lesson, 0, len(rows))
	for i := range rows {
		lessons = append(lessons, models.Lesson{
			ID:       int64(rows[i].ID),
			Title:    rows[i].Title,
			IsActive: rows[i].IsActive,
		})
	}
	return lessons, nil
}

func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
