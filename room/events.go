// room/events.go
package room

import (
	"github.com/wfunc/quizserver/models"
)

// 出站事件负载。字段名与线上协议严格一致，勿改。

type RoomCreatedPayload struct {
	RoomCode       string `json:"room_code"`
	QuestionsCount int    `json:"questions_count"`
	IsLocked       bool   `json:"is_locked"`
}

type RoomJoinedPayload struct {
	RoomCode     string `json:"room_code"`
	TeacherName  string `json:"teacher_name"`
	PlayersCount int    `json:"players_count"`
}

type PlayerJoinedPayload struct {
	UserID       int64  `json:"user_id"`
	Name         string `json:"name"`
	PlayersCount int    `json:"players_count"`
}

type PlayerLeftPayload struct {
	UserID       int64  `json:"user_id"`
	Name         string `json:"name"`
	PlayersCount int    `json:"players_count"`
}

type QuizStartedPayload struct {
	Message        string `json:"message"`
	TotalQuestions int    `json:"total_questions"`
}

type QuestionStartedPayload struct {
	Word           string   `json:"word"`
	Options        []string `json:"options"`
	QuestionNumber int      `json:"question_number"`
	TotalQuestions int      `json:"total_questions"`
	TimeLimit      int      `json:"time_limit"`
}

type CountdownPayload struct {
	Remaining int `json:"remaining"`
}

type AnswerSubmittedPayload struct {
	AnswerIndex int    `json:"answer_index"`
	Timestamp   string `json:"timestamp"`
}

type AnswerReceivedPayload struct {
	PlayerName   string `json:"player_name"`
	AnswersCount int    `json:"answers_count"`
	TotalPlayers int    `json:"total_players"`
}

// QuestionReveal 公布题目的正确答案
type QuestionReveal struct {
	Word          string   `json:"word"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	CorrectIndex  int      `json:"correct_index"`
}

type QuestionEndedPayload struct {
	Question       QuestionReveal     `json:"question"`
	Leaderboard    []LeaderboardEntry `json:"leaderboard"`
	AnswersCount   int                `json:"answers_count"`
	TotalPlayers   int                `json:"total_players"`
	QuestionNumber int                `json:"question_number"`
	TotalQuestions int                `json:"total_questions"`
}

type QuizFinishedPayload struct {
	FinalLeaderboard []LeaderboardEntry `json:"final_leaderboard"`
	TotalQuestions   int                `json:"total_questions"`
}

type TeacherDisconnectedPayload struct {
	Message string `json:"message"`
}

type PublicRoomsPayload struct {
	Rooms []models.PublicRoomInfo `json:"rooms"`
}
