// services/question_service.go
package services

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/wfunc/quizserver/models"
	"github.com/wfunc/quizserver/persistence"
)

const optionsPerQuestion = 4

var (
	// ErrInsufficientWordPool 课程词汇总量不足以生成请求的题目数
	ErrInsufficientWordPool = errors.New("insufficient word pool")
	// ErrLessonNotFound 课程不存在或未启用
	ErrLessonNotFound = errors.New("lesson not found or inactive")
)

// QuestionService 从词库生成题目集。无共享可变状态，可并发调用。
type QuestionService struct {
	store persistence.VocabularyStore
}

func NewQuestionService(store persistence.VocabularyStore) *QuestionService {
	return &QuestionService{store: store}
}

// ValidateLessons 确认所有请求的课程都存在且启用
func (s *QuestionService) ValidateLessons(lessonIDs []int64) error {
	lessons, err := s.store.ActiveLessons(lessonIDs)
	if err != nil {
		return err
	}

	if len(lessons) != len(lessonIDs) {
		found := make(map[int64]bool, len(lessons))
		for _, l := range lessons {
			found[l.ID] = true
		}
		var missing []int64
		for _, id := range lessonIDs {
			if !found[id] {
				missing = append(missing, id)
			}
		}
		return fmt.Errorf("%w: %v", ErrLessonNotFound, missing)
	}
	return nil
}

// Generate 从给定课程的词汇池中生成恰好 numQuestions 道题。
// 每道题: 1个正确释义 + 最多3个同池干扰项，不足4项时用占位选项补齐。
func (s *QuestionService) Generate(lessonIDs []int64, numQuestions int) ([]models.Question, error) {
	words, err := s.store.ActiveWordsByLessons(lessonIDs)
	if err != nil {
		return nil, err
	}

	if len(words) < numQuestions {
		return nil, fmt.Errorf("%w: found %d words, need %d", ErrInsufficientWordPool, len(words), numQuestions)
	}

	// 不放回抽取正确答案词
	shuffled := make([]models.Word, len(words))
	copy(shuffled, words)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	selected := shuffled[:numQuestions]

	questions := make([]models.Question, 0, numQuestions)
	for _, word := range selected {
		questions = append(questions, buildQuestion(word, words))
	}
	return questions, nil
}

func buildQuestion(word models.Word, pool []models.Word) models.Question {
	// 从同池抽最多3个干扰项
	others := make([]models.Word, 0, len(pool)-1)
	for _, w := range pool {
		if w.ID != word.ID {
			others = append(others, w)
		}
	}
	rand.Shuffle(len(others), func(i, j int) {
		others[i], others[j] = others[j], others[i]
	})

	options := []string{word.Meaning}
	for i := 0; i < len(others) && len(options) < optionsPerQuestion; i++ {
		options = append(options, others[i].Meaning)
	}

	// 池子太小时用占位选项补齐，而不是失败
	for len(options) < optionsPerQuestion {
		options = append(options, fmt.Sprintf("Option %d", len(options)))
	}

	// 打乱选项并跟踪正确项的新下标
	correctIndex := 0
	rand.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
		switch correctIndex {
		case i:
			correctIndex = j
		case j:
			correctIndex = i
		}
	})

	return models.Question{
		WordID:        word.ID,
		Word:          word.Word,
		Meaning:       word.Meaning,
		Options:       options,
		CorrectAnswer: word.Meaning,
		CorrectIndex:  correctIndex,
	}
}
