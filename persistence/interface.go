// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/wfunc/quizserver/models"
)

// VocabularyStore 词库只读接口。测验引擎从内容服务读取词汇，
// 从不回写持久化存储。
type VocabularyStore interface {
	// ActiveWordsByLessons 返回给定课程下所有启用的词汇
	ActiveWordsByLessons(lessonIDs []int64) ([]models.Word, error)
	// ActiveLessons 校验课程存在且启用
	ActiveLessons(lessonIDs []int64) ([]models.Lesson, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
