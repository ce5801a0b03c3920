package network

// 客户端 -> 服务器 的命令事件
const (
	EventCreateRoom   = "create_room"
	EventJoinRoom     = "join_room"
	EventLeaveRoom    = "leave_room"
	EventStartQuiz    = "start_quiz"
	EventNextQuestion = "next_question"
	EventSkipQuestion = "skip_question"
	EventSubmitAnswer = "submit_answer"
	EventListRooms    = "list_rooms"
)

// 服务器 -> 客户端 的广播/通知事件
const (
	EventConnected           = "connected"
	EventError               = "error"
	EventRoomCreated         = "room_created"
	EventRoomJoined          = "room_joined"
	EventPlayerJoined        = "player_joined"
	EventPlayerLeft          = "player_left"
	EventQuizStarted         = "quiz_started"
	EventQuestionStarted     = "question_started"
	EventCountdown           = "countdown"
	EventAnswerSubmitted     = "answer_submitted"
	EventAnswerReceived      = "answer_received"
	EventQuestionEnded       = "question_ended"
	EventQuizFinished        = "quiz_finished"
	EventTeacherDisconnected = "teacher_disconnected"
	EventPublicRoomsUpdated  = "public_rooms_updated"
)
