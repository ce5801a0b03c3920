// models/models.go
package models

// Word 词汇条目，来自内容服务，引擎只读
type Word struct {
	ID       int64  `json:"id"`
	LessonID int64  `json:"lesson_id"`
	Word     string `json:"word"`
	Meaning  string `json:"meaning"`
	IsActive bool   `json:"is_active"`
}

// Lesson 课程单元
type Lesson struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	IsActive bool   `json:"is_active"`
}

// Question 测验题目，房间创建后不可变
type Question struct {
	WordID        int64    `json:"word_id"`
	Word          string   `json:"word"`
	Meaning       string   `json:"meaning"`
	Options       []string `json:"options"` // 固定4个选项
	CorrectAnswer string   `json:"correct_answer"`
	CorrectIndex  int      `json:"correct_index"`
}

// PublicRoomInfo 公开房间列表条目
type PublicRoomInfo struct {
	Code         string `json:"code"`
	TeacherName  string `json:"teacher_name"`
	PlayersCount int    `json:"players_count"`
	NumQuestions int    `json:"num_questions"`
	CreatedAt    string `json:"created_at"`
}
