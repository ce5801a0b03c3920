package server

import (
	"encoding/json"
	"net/http"
	netrpc "net/rpc"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/quizserver/auth"
	"github.com/wfunc/quizserver/broadcast"
	"github.com/wfunc/quizserver/config"
	"github.com/wfunc/quizserver/logger"
	"github.com/wfunc/quizserver/monitor"
	"github.com/wfunc/quizserver/network"
	"github.com/wfunc/quizserver/persistence"
	"github.com/wfunc/quizserver/room"
	quizrpc "github.com/wfunc/quizserver/rpc"
	"github.com/wfunc/quizserver/services"
	"github.com/wfunc/quizserver/session"
	"github.com/wfunc/quizserver/timer"
)

// QuizServer 测验引擎的websocket前门: 鉴权、会话管理、命令分发
type QuizServer struct {
	addr            string
	upgrader        websocket.Upgrader
	timers          *timer.Manager
	roomManager     *room.Manager
	sessionManager  *session.Manager
	questionService *services.QuestionService
	broadcaster     *broadcast.SessionBroadcaster
	verifier        *auth.Verifier
	monitor         *monitor.Monitor
	rpcServer       *quizrpc.Server
	quizConfig      config.QuizConfig
	shutdownChan    chan struct{}
}

func NewQuizServer(cfg *config.Config, store persistence.VocabularyStore, mon *monitor.Monitor) *QuizServer {
	timers := timer.NewManager()
	sessionManager := session.NewManager()
	broadcaster := broadcast.NewSessionBroadcaster(sessionManager)

	settings := room.Settings{
		QuestionTimeLimit: cfg.Quiz.QuestionTimeLimit,
		MaxPoints:         cfg.Quiz.MaxPoints,
		RemovalGrace:      cfg.Quiz.RemovalGrace,
		CommandBuffer:     cfg.Quiz.CommandBuffer,
	}
	if mon != nil {
		settings.OnAnswerAccepted = func(elapsed time.Duration) {
			mon.IncAnswersReceived()
			mon.ObserveAnswerLatency(elapsed)
		}
	}

	roomManager := room.NewManager(timers, settings)

	s := &QuizServer{
		addr:            cfg.Server.HTTPAddress,
		timers:          timers,
		roomManager:     roomManager,
		sessionManager:  sessionManager,
		questionService: services.NewQuestionService(store),
		broadcaster:     broadcaster,
		verifier:        auth.NewVerifier(cfg.Auth.JWTSecret),
		monitor:         mon,
		quizConfig:      cfg.Quiz,
		shutdownChan:    make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	roomManager.OnRoomsChanged = func(count int) {
		if mon != nil {
			mon.SetActiveRooms(count)
		}
	}
	roomManager.OnPublicRoomsChanged = func() {
		s.broadcaster.BroadcastToAll(network.EventPublicRoomsUpdated, room.PublicRoomsPayload{
			Rooms: roomManager.ListPublicRooms(),
		})
	}

	// RPC侧车: 供周边平台查询房间列表和状态
	rpcServer, err := quizrpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer
	netrpc.Register(quizrpc.NewQuizService(roomManager))

	return s
}

func (s *QuizServer) Start() error {
	go s.rpcServer.Start()

	s.roomManager.StartSweeper(s.quizConfig.SweepInterval, s.quizConfig.MaxRoomAge)

	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Quiz server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, nil)
}

func (s *QuizServer) Shutdown() {
	close(s.shutdownChan)
	s.rpcServer.Stop()
	s.roomManager.Close()
	s.timers.Stop()
}

func (s *QuizServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn, r.URL.Query().Get("token"))
}

func (s *QuizServer) handleConnection(conn *websocket.Conn, token string) {
	wsConn := network.NewWSConnection(conn)

	identity, err := s.verifier.Verify(token)
	if err != nil {
		logger.Log.Infof("Authentication failed for %s: %v", wsConn.RemoteAddr(), err)
		wsConn.Send(network.EventError, errorPayload{Message: "Not authenticated"})
		wsConn.Close()
		return
	}

	sess := session.NewSession(uuid.New().String(), wsConn)
	sess.UserID = identity.UserID
	sess.Name = identity.Name
	sess.Role = identity.Role
	s.sessionManager.Add(sess)
	if s.monitor != nil {
		s.monitor.IncOnlinePlayers()
	}

	logger.Log.Infof("User %s (%d, %s) connected from %s, session %s",
		identity.Name, identity.UserID, identity.Role, wsConn.RemoteAddr(), sess.GetID())

	sess.Send(network.EventConnected, connectedPayload{
		UserID: identity.UserID,
		Name:   identity.Name,
		Role:   identity.Role,
	})

	defer func() {
		logger.Log.Infof("User %s (%d) disconnected, session %s", sess.Name, sess.UserID, sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		if s.monitor != nil {
			s.monitor.DecOnlinePlayers()
		}
		s.handleDeparture(sess)
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			env, err := wsConn.ReadEnvelope()
			if err != nil {
				return
			}
			s.handleEnvelope(sess, env)
		}
	}
}

// handleDeparture 传输断开后的善后: 主持人掉线强制结束测验，
// 玩家掉线只翻转连接标记
func (s *QuizServer) handleDeparture(sess *session.Session) {
	code := sess.GetRoom()
	if code == "" {
		return
	}

	rm, exists := s.roomManager.GetRoom(code)
	if !exists {
		return
	}

	if sess.UserID == rm.HostID {
		if err := rm.HostLost(); err != nil && err != room.ErrRoomClosed {
			logger.Log.Warnf("host-lost handling for room %s failed: %v", code, err)
		}
		return
	}

	rm.MarkDisconnected(sess.UserID)
}

func (s *QuizServer) handleEnvelope(sess *session.Session, env *network.Envelope) {
	switch env.Event {
	case network.EventCreateRoom:
		s.handleCreateRoom(sess, env.Data)
	case network.EventJoinRoom:
		s.handleJoinRoom(sess, env.Data)
	case network.EventLeaveRoom:
		s.handleLeaveRoom(sess)
	case network.EventStartQuiz:
		s.handleHostCommand(sess, env.Data, func(r *room.Room) error { return r.Start(sess.UserID) })
	case network.EventNextQuestion:
		s.handleHostCommand(sess, env.Data, func(r *room.Room) error { return r.Next(sess.UserID) })
	case network.EventSkipQuestion:
		s.handleHostCommand(sess, env.Data, func(r *room.Room) error { return r.Skip(sess.UserID) })
	case network.EventSubmitAnswer:
		s.handleSubmitAnswer(sess, env.Data)
	case network.EventListRooms:
		sess.Send(network.EventPublicRoomsUpdated, room.PublicRoomsPayload{
			Rooms: s.roomManager.ListPublicRooms(),
		})
	default:
		logger.Log.Infof("Unknown event %q from session %s", env.Event, sess.GetID())
	}
}

func (s *QuizServer) handleCreateRoom(sess *session.Session, data json.RawMessage) {
	if sess.Role != session.RoleTeacher {
		s.sendError(sess, "Only teachers can create rooms")
		return
	}

	var req createRoomRequest
	if err := json.Unmarshal(data, &req); err != nil || len(req.LessonIDs) == 0 || req.NumQuestions <= 0 {
		s.sendError(sess, "Invalid request")
		return
	}

	if err := s.questionService.ValidateLessons(req.LessonIDs); err != nil {
		s.sendError(sess, err.Error())
		return
	}

	questions, err := s.questionService.Generate(req.LessonIDs, req.NumQuestions)
	if err != nil {
		s.sendError(sess, err.Error())
		return
	}

	rm, err := s.roomManager.CreateRoom(sess.UserID, sess.Name, sess.GetID(),
		req.LessonIDs, questions, req.IsLocked, s.broadcaster)
	if err != nil {
		s.sendError(sess, err.Error())
		return
	}

	// 主持人订阅房间主题
	sess.SetRoom(rm.Code)
	if s.monitor != nil {
		s.monitor.IncRoomsCreated()
	}

	sess.Send(network.EventRoomCreated, room.RoomCreatedPayload{
		RoomCode:       rm.Code,
		QuestionsCount: len(questions),
		IsLocked:       req.IsLocked,
	})
}

func (s *QuizServer) handleJoinRoom(sess *session.Session, data json.RawMessage) {
	if sess.Role != session.RoleStudent {
		s.sendError(sess, "Invalid request")
		return
	}

	var req roomCodeRequest
	if err := json.Unmarshal(data, &req); err != nil || req.RoomCode == "" {
		s.sendError(sess, "Invalid request")
		return
	}

	rm, exists := s.roomManager.GetRoom(req.RoomCode)
	if !exists {
		s.sendError(sess, "Room not found")
		return
	}

	if err := rm.Join(sess.UserID, sess.Name, sess.GetID()); err != nil {
		s.sendError(sess, joinErrorMessage(err))
		return
	}

	sess.SetRoom(rm.Code)

	info, err := rm.Info()
	if err != nil {
		return
	}
	sess.Send(network.EventRoomJoined, room.RoomJoinedPayload{
		RoomCode:     rm.Code,
		TeacherName:  info.HostName,
		PlayersCount: info.PlayersCount,
	})
}

func (s *QuizServer) handleLeaveRoom(sess *session.Session) {
	code := sess.GetRoom()
	if code == "" {
		return
	}

	if rm, exists := s.roomManager.GetRoom(code); exists {
		if err := rm.Leave(sess.UserID); err != nil && err != room.ErrNotInRoom && err != room.ErrRoomClosed {
			s.sendError(sess, err.Error())
			return
		}
	}
	sess.SetRoom("")
}

// handleHostCommand 处理start/next/skip这类房主房控命令
func (s *QuizServer) handleHostCommand(sess *session.Session, data json.RawMessage, cmd func(*room.Room) error) {
	rm, ok := s.resolveRoom(sess, data)
	if !ok {
		return
	}

	if err := cmd(rm); err != nil {
		s.sendError(sess, err.Error())
	}
}

func (s *QuizServer) handleSubmitAnswer(sess *session.Session, data json.RawMessage) {
	if sess.Role != session.RoleStudent {
		return
	}

	var req submitAnswerRequest
	if err := json.Unmarshal(data, &req); err != nil || req.AnswerIndex < 0 || req.AnswerIndex > 3 {
		s.sendError(sess, "Invalid request")
		return
	}

	code := req.RoomCode
	if code == "" {
		code = sess.GetRoom()
	}
	rm, exists := s.roomManager.GetRoom(code)
	if !exists {
		s.sendError(sess, "Cannot submit answer now")
		return
	}

	if err := rm.SubmitAnswer(sess.UserID, req.AnswerIndex); err != nil {
		s.sendError(sess, submitErrorMessage(err))
		return
	}

	sess.Send(network.EventAnswerSubmitted, room.AnswerSubmittedPayload{
		AnswerIndex: req.AnswerIndex,
		Timestamp:   time.Now().Format(time.RFC3339),
	})
}

// resolveRoom 从负载或会话解析目标房间
func (s *QuizServer) resolveRoom(sess *session.Session, data json.RawMessage) (*room.Room, bool) {
	var req roomCodeRequest
	if len(data) > 0 {
		json.Unmarshal(data, &req)
	}
	code := req.RoomCode
	if code == "" {
		code = sess.GetRoom()
	}

	rm, exists := s.roomManager.GetRoom(code)
	if !exists {
		s.sendError(sess, "Room not found")
		return nil, false
	}
	return rm, true
}

func (s *QuizServer) sendError(sess *session.Session, message string) {
	sess.Send(network.EventError, errorPayload{Message: message})
}

func joinErrorMessage(err error) string {
	switch err {
	case room.ErrInvalidState:
		return "Room is not accepting new players"
	case room.ErrDuplicatePlayer:
		return "Already in this room"
	default:
		return "Could not join room"
	}
}

func submitErrorMessage(err error) string {
	switch err {
	case room.ErrAlreadyAnswered:
		return "Already answered"
	case room.ErrAnswerWindowClosed:
		return "Time's up"
	case room.ErrNotInRoom:
		return "Not in this room"
	default:
		return "Cannot submit answer now"
	}
}

// 入站命令负载

type createRoomRequest struct {
	LessonIDs    []int64 `json:"lesson_ids"`
	NumQuestions int     `json:"num_questions"`
	IsLocked     bool    `json:"is_locked"`
}

type roomCodeRequest struct {
	RoomCode string `json:"room_code"`
}

type submitAnswerRequest struct {
	RoomCode    string `json:"room_code"`
	AnswerIndex int    `json:"answer_index"`
}

type connectedPayload struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

type errorPayload struct {
	Message string `json:"message"`
}
