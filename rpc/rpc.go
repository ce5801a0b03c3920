package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/quizserver/logger"
	"github.com/wfunc/quizserver/models"
	"github.com/wfunc/quizserver/room"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// QuizService 供周边平台查询房间状态的RPC服务。
// 方法遵循net/rpc签名约定。
type QuizService struct {
	roomManager *room.Manager
}

func NewQuizService(rm *room.Manager) *QuizService {
	return &QuizService{roomManager: rm}
}

type ListPublicRoomsArgs struct{}

type ListPublicRoomsReply struct {
	Rooms []models.PublicRoomInfo
}

// ListPublicRooms 返回未锁定且等待中的房间
func (qs *QuizService) ListPublicRooms(args *ListPublicRoomsArgs, reply *ListPublicRoomsReply) error {
	reply.Rooms = qs.roomManager.ListPublicRooms()
	return nil
}

type RoomStatusArgs struct {
	RoomCode string
}

type RoomStatusReply struct {
	Code            string
	Status          string
	PlayersCount    int
	ConnectedCount  int
	CurrentQuestion int
	TotalQuestions  int
	AnswersReceived int
	Players         []room.LeaderboardEntry
}

// RoomStatus 返回单个房间的即时状态
func (qs *QuizService) RoomStatus(args *RoomStatusArgs, reply *RoomStatusReply) error {
	rm, exists := qs.roomManager.GetRoom(args.RoomCode)
	if !exists {
		return room.ErrRoomNotFound
	}

	info, err := rm.Info()
	if err != nil {
		return err
	}

	reply.Code = info.Code
	reply.Status = info.Status.String()
	reply.PlayersCount = info.PlayersCount
	reply.ConnectedCount = info.ConnectedCount
	reply.CurrentQuestion = info.CurrentQuestion
	reply.TotalQuestions = info.NumQuestions
	reply.AnswersReceived = info.AnswersCount
	reply.Players = info.Players
	return nil
}
