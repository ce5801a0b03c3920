package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/wfunc/quizserver/models"
)

// memoryStore is an in-memory test double for persistence.VocabularyStore.
type memoryStore struct {
	words   []models.Word
	lessons []models.Lesson
}

func (m *memoryStore) ActiveWordsByLessons(lessonIDs []int64) ([]models.Word, error) {
	wanted := make(map[int64]bool, len(lessonIDs))
	for _, id := range lessonIDs {
		wanted[id] = true
	}
	var result []models.Word
	for _, w := range m.words {
		if wanted[w.LessonID] && w.IsActive {
			result = append(result, w)
		}
	}
	return result, nil
}

func (m *memoryStore) ActiveLessons(lessonIDs []int64) ([]models.Lesson, error) {
	wanted := make(map[int64]bool, len(lessonIDs))
	for _, id := range lessonIDs {
		wanted[id] = true
	}
	var result []models.Lesson
	for _, l := range m.lessons {
		if wanted[l.ID] && l.IsActive {
			result = append(result, l)
		}
	}
	return result, nil
}

func (m *memoryStore) Close() error { return nil }

func newStoreWithWords(count int) *memoryStore {
	store := &memoryStore{
		lessons: []models.Lesson{{ID: 1, Title: "Lesson 1", IsActive: true}},
	}
	for i := 1; i <= count; i++ {
		store.words = append(store.words, models.Word{
			ID:       int64(i),
			LessonID: 1,
			Word:     fmt.Sprintf("word%d", i),
			Meaning:  fmt.Sprintf("meaning%d", i),
			IsActive: true,
		})
	}
	return store
}

func TestGenerate_ExactCount(t *testing.T) {
	svc := NewQuestionService(newStoreWithWords(10))

	questions, err := svc.Generate([]int64{1}, 5)
	if err != nil {
		t.Fatalf("Generate returned unexpected error: %v", err)
	}
	if len(questions) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(questions))
	}

	seen := make(map[int64]bool)
	for _, q := range questions {
		if seen[q.WordID] {
			t.Errorf("word %d sampled more than once", q.WordID)
		}
		seen[q.WordID] = true

		if len(q.Options) != 4 {
			t.Errorf("expected 4 options, got %d", len(q.Options))
		}
		if q.CorrectIndex < 0 || q.CorrectIndex > 3 {
			t.Errorf("correct index %d out of range", q.CorrectIndex)
		}
		if q.Options[q.CorrectIndex] != q.CorrectAnswer {
			t.Errorf("option at correct index is %q, want %q", q.Options[q.CorrectIndex], q.CorrectAnswer)
		}
		if q.CorrectAnswer != q.Meaning {
			t.Errorf("correct answer %q should be the word's meaning %q", q.CorrectAnswer, q.Meaning)
		}
	}
}

func TestGenerate_InsufficientWordPool(t *testing.T) {
	svc := NewQuestionService(newStoreWithWords(6))

	_, err := svc.Generate([]int64{1}, 10)
	if !errors.Is(err, ErrInsufficientWordPool) {
		t.Fatalf("expected ErrInsufficientWordPool, got %v", err)
	}
}

func TestGenerate_PadsSmallPool(t *testing.T) {
	// Two words total: each question gets one real distractor and two placeholders.
	svc := NewQuestionService(newStoreWithWords(2))

	questions, err := svc.Generate([]int64{1}, 2)
	if err != nil {
		t.Fatalf("Generate returned unexpected error: %v", err)
	}

	for _, q := range questions {
		if len(q.Options) != 4 {
			t.Fatalf("expected padded options to reach 4, got %d", len(q.Options))
		}
		if q.Options[q.CorrectIndex] != q.CorrectAnswer {
			t.Errorf("correct index lost during padding and shuffle")
		}

		placeholders := 0
		for _, opt := range q.Options {
			if len(opt) >= 6 && opt[:6] == "Option" {
				placeholders++
			}
		}
		if placeholders != 2 {
			t.Errorf("expected 2 placeholder options, got %d", placeholders)
		}
	}
}

func TestValidateLessons(t *testing.T) {
	store := newStoreWithWords(3)
	store.lessons = append(store.lessons, models.Lesson{ID: 2, Title: "Inactive", IsActive: false})
	svc := NewQuestionService(store)

	if err := svc.ValidateLessons([]int64{1}); err != nil {
		t.Errorf("expected active lesson to validate, got %v", err)
	}

	err := svc.ValidateLessons([]int64{1, 2})
	if !errors.Is(err, ErrLessonNotFound) {
		t.Errorf("expected ErrLessonNotFound for inactive lesson, got %v", err)
	}

	err = svc.ValidateLessons([]int64{1, 99})
	if !errors.Is(err, ErrLessonNotFound) {
		t.Errorf("expected ErrLessonNotFound for unknown lesson, got %v", err)
	}
}
