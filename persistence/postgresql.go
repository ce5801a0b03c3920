// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// PostgreSQL 驱动
	"github.com/lib/pq"

	"github.com/wfunc/quizserver/models"
)

// PostgreSQL 基于 database/sql + lib/pq 的词库实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgreSQL{db: db}, nil
}

// ActiveWordsByLessons 返回给定课程下所有启用的词汇
func (p *PostgreSQL) ActiveWordsByLessons(lessonIDs []int64) ([]models.Word, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        SELECT w.id, w.lesson_id, w.word, w.meaning, w.is_active
        FROM words w
        JOIN lessons l ON l.id = w.lesson_id
        WHERE w.lesson_id = ANY($1)
          AND w.is_active = TRUE
          AND l.is_active = TRUE
    `
	rows, err := p.db.QueryContext(ctx, query, pq.Array(lessonIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var words []models.Word
	for rows.Next() {
		var w models.Word
		if err := rows.Scan(&w.ID, &w.LessonID, &w.Word, &w.Meaning, &w.IsActive); err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	return words, rows.Err()
}

// ActiveLessons 校验课程存在且启用
func (p *PostgreSQL) ActiveLessons(lessonIDs []int64) ([]models.Lesson, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        SELECT id, title, is_active
        FROM lessons
        WHERE id = ANY($1) AND is_active = TRUE
    `
	rows, err := p.db.QueryContext(ctx, query, pq.Array(lessonIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lessons []models.Lesson
	for rows.Next() {
		var l models.Lesson
		if err := rows.Scan(&l.ID, &l.Title, &l.IsActive); err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
