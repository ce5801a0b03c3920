// room/room.go
package room

import (
	"sort"
	"sync"
	"time"

	"github.com/wfunc/quizserver/logger"
	"github.com/wfunc/quizserver/models"
	"github.com/wfunc/quizserver/network"
	"github.com/wfunc/quizserver/state"
	"github.com/wfunc/quizserver/timer"
)

// Player 房间内的一名玩家。断线只翻转IsConnected，记录不删除；
// 仅在WAITING阶段显式退出时移除。
type Player struct {
	ID          int64
	Name        string
	SessionID   string
	Score       int
	JoinedAt    time.Time
	IsConnected bool

	joinOrder int
}

// Answer 当前题目的一次作答
type Answer struct {
	PlayerID    int64
	ChosenIndex int
	Elapsed     time.Duration
	IsCorrect   bool
	Points      int
}

// Settings 房间的时间与计分参数
type Settings struct {
	QuestionTimeLimit time.Duration
	MaxPoints         int
	RemovalGrace      time.Duration
	CommandBuffer     int

	// OnAnswerAccepted 作答被接受后的指标回调，可为nil
	OnAnswerAccepted func(elapsed time.Duration)
}

// DefaultSettings 与原始产品一致: 20秒答题窗口，满分1000，
// 结束后30秒移除房间。
func DefaultSettings() Settings {
	return Settings{
		QuestionTimeLimit: 20 * time.Second,
		MaxPoints:         1000,
		RemovalGrace:      30 * time.Second,
		CommandBuffer:     64,
	}
}

type cmdKind int

const (
	cmdJoin cmdKind = iota
	cmdLeave
	cmdDisconnect
	cmdStart
	cmdNext
	cmdSkip
	cmdSubmit
	cmdExpire
	cmdTick
	cmdHostLost
	cmdInfo
)

// command 房间worker的输入。所有状态变更都经由命令串行处理。
type command struct {
	kind          cmdKind
	userID        int64
	name          string
	sessionID     string
	answerIndex   int
	questionIndex int
	reply         chan error
	infoReply     chan Info
}

// Info 房间状态快照，供注册表列表和RPC查询使用
type Info struct {
	Code            string
	HostID          int64
	HostName        string
	Status          state.Status
	IsLocked        bool
	PlayersCount    int
	ConnectedCount  int
	NumQuestions    int
	CurrentQuestion int
	AnswersCount    int
	CreatedAt       time.Time
	Players         []LeaderboardEntry
}

// Room 一局测验。worker goroutine是其可变状态的唯一所有者。
type Room struct {
	Code          string
	HostID        int64
	HostName      string
	HostSessionID string
	LessonIDs     []int64
	IsLocked      bool
	CreatedAt     time.Time

	settings    Settings
	broadcaster Broadcaster
	timers      *timer.Manager
	removeFunc  func(code string, removed *Room)

	// 仅worker goroutine访问
	status           state.Status
	questions        []models.Question
	players          map[int64]*Player
	joinSeq          int
	currentIndex     int
	questionStart    time.Time
	answers          []Answer
	prevBoard        []RankSnapshot
	questionTimerID  int64
	countdownTimerID int64
	removalTimerID   int64

	cmds      chan command
	done      chan struct{}
	closeOnce sync.Once
}

// NewRoom 创建房间并启动其worker。removeFunc在宽限期后由定时任务调用。
func NewRoom(code string, hostID int64, hostName, hostSessionID string, lessonIDs []int64,
	questions []models.Question, isLocked bool, settings Settings,
	broadcaster Broadcaster, timers *timer.Manager, removeFunc func(code string, removed *Room)) *Room {

	if settings.CommandBuffer <= 0 {
		settings.CommandBuffer = 64
	}

	r := &Room{
		Code:          code,
		HostID:        hostID,
		HostName:      hostName,
		HostSessionID: hostSessionID,
		LessonIDs:     lessonIDs,
		IsLocked:      isLocked,
		CreatedAt:     time.Now(),
		settings:      settings,
		broadcaster:   broadcaster,
		timers:        timers,
		removeFunc:    removeFunc,
		status:        state.Waiting,
		questions:     questions,
		players:       make(map[int64]*Player),
		cmds:          make(chan command, settings.CommandBuffer),
		done:          make(chan struct{}),
	}
	go r.run()
	return r
}

// --- 对外命令接口，均为 入队+等待结果 ---

func (r *Room) Join(userID int64, name, sessionID string) error {
	return r.do(command{kind: cmdJoin, userID: userID, name: name, sessionID: sessionID})
}

func (r *Room) Leave(userID int64) error {
	return r.do(command{kind: cmdLeave, userID: userID})
}

// MarkDisconnected 传输层断开时翻转玩家连接标记
func (r *Room) MarkDisconnected(userID int64) error {
	return r.do(command{kind: cmdDisconnect, userID: userID})
}

func (r *Room) Start(userID int64) error {
	return r.do(command{kind: cmdStart, userID: userID})
}

func (r *Room) Next(userID int64) error {
	return r.do(command{kind: cmdNext, userID: userID})
}

func (r *Room) Skip(userID int64) error {
	return r.do(command{kind: cmdSkip, userID: userID})
}

func (r *Room) SubmitAnswer(userID int64, answerIndex int) error {
	return r.do(command{kind: cmdSubmit, userID: userID, answerIndex: answerIndex})
}

// HostLost 主持人连接丢失，强制结束测验
func (r *Room) HostLost() error {
	return r.do(command{kind: cmdHostLost})
}

// Info 返回房间状态快照
func (r *Room) Info() (Info, error) {
	c := command{kind: cmdInfo, infoReply: make(chan Info, 1)}
	c.reply = make(chan error, 1)
	select {
	case r.cmds <- c:
	case <-r.done:
		return Info{}, ErrRoomClosed
	}
	select {
	case info := <-c.infoReply:
		return info, nil
	case <-r.done:
		return Info{}, ErrRoomClosed
	}
}

// Close 停止worker并取消所有未触发的定时任务
func (r *Room) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
	})
}

func (r *Room) do(c command) error {
	c.reply = make(chan error, 1)
	select {
	case r.cmds <- c:
	case <-r.done:
		return ErrRoomClosed
	}
	select {
	case err := <-c.reply:
		return err
	case <-r.done:
		return ErrRoomClosed
	}
}

// enqueue 定时任务回调用的非阻塞入队，房间已关闭时静默丢弃
func (r *Room) enqueue(c command) {
	select {
	case r.cmds <- c:
	case <-r.done:
	}
}

// run 是房间的主循环: 命令按提交顺序串行处理
func (r *Room) run() {
	for {
		select {
		case c := <-r.cmds:
			r.handle(c)
		case <-r.done:
			r.cancelQuestionTimers()
			if r.removalTimerID != 0 {
				r.timers.Remove(r.removalTimerID)
				r.removalTimerID = 0
			}
			return
		}
	}
}

func (r *Room) handle(c command) {
	var err error

	switch c.kind {
	case cmdJoin:
		err = r.handleJoin(c.userID, c.name, c.sessionID)
	case cmdLeave:
		err = r.handleLeave(c.userID)
	case cmdDisconnect:
		err = r.handleDisconnect(c.userID)
	case cmdStart:
		err = r.handleStart(c.userID)
	case cmdNext:
		err = r.handleNext(c.userID)
	case cmdSkip:
		err = r.handleSkip(c.userID)
	case cmdSubmit:
		err = r.handleSubmit(c.userID, c.answerIndex)
	case cmdExpire:
		r.handleExpire(c.questionIndex)
	case cmdTick:
		r.handleTick(c.questionIndex)
	case cmdHostLost:
		r.handleHostLost()
	case cmdInfo:
		c.infoReply <- r.snapshot()
	}

	if c.reply != nil {
		c.reply <- err
	}
}

// --- 命令处理 (仅worker调用) ---

func (r *Room) handleJoin(userID int64, name, sessionID string) error {
	if r.status != state.Waiting {
		return ErrInvalidState
	}
	if _, exists := r.players[userID]; exists {
		return ErrDuplicatePlayer
	}

	r.joinSeq++
	r.players[userID] = &Player{
		ID:          userID,
		Name:        name,
		SessionID:   sessionID,
		JoinedAt:    time.Now(),
		IsConnected: true,
		joinOrder:   r.joinSeq,
	}

	r.broadcast(network.EventPlayerJoined, PlayerJoinedPayload{
		UserID:       userID,
		Name:         name,
		PlayersCount: len(r.players),
	})
	return nil
}

func (r *Room) handleLeave(userID int64) error {
	p, exists := r.players[userID]
	if !exists {
		return ErrNotInRoom
	}

	// 仅WAITING阶段删除记录，开赛后离开按断线处理以保留得分
	if r.status == state.Waiting {
		delete(r.players, userID)
		r.broadcast(network.EventPlayerLeft, PlayerLeftPayload{
			UserID:       userID,
			Name:         p.Name,
			PlayersCount: len(r.players),
		})
		return nil
	}
	return r.handleDisconnect(userID)
}

func (r *Room) handleDisconnect(userID int64) error {
	p, exists := r.players[userID]
	if !exists {
		return ErrNotInRoom
	}
	if !p.IsConnected {
		return nil
	}
	p.IsConnected = false

	r.broadcast(network.EventPlayerLeft, PlayerLeftPayload{
		UserID:       userID,
		Name:         p.Name,
		PlayersCount: r.connectedCount(),
	})
	return nil
}

func (r *Room) handleStart(userID int64) error {
	if userID != r.HostID {
		return ErrNotHost
	}
	if r.status != state.Waiting || len(r.players) == 0 {
		return ErrInvalidState
	}

	r.setStatus(state.InProgress)
	r.currentIndex = 0

	r.broadcast(network.EventQuizStarted, QuizStartedPayload{
		Message:        "Quiz is starting!",
		TotalQuestions: len(r.questions),
	})
	r.startQuestion()
	return nil
}

func (r *Room) handleSkip(userID int64) error {
	if userID != r.HostID {
		return ErrNotHost
	}
	if r.status != state.InProgress {
		return ErrInvalidState
	}
	r.endQuestion()
	return nil
}

// handleExpire 定时器到期。只有房间仍在作答且代数标签等于当前题目
// 下标时才结束题目，否则是被skip抢先或来自已跳过题目的陈旧定时器，
// 静默丢弃。
func (r *Room) handleExpire(questionIndex int) {
	if r.status != state.InProgress || questionIndex != r.currentIndex {
		return
	}
	r.endQuestion()
}

func (r *Room) handleTick(questionIndex int) {
	if r.status != state.InProgress || questionIndex != r.currentIndex {
		return
	}

	remaining := r.settings.QuestionTimeLimit - time.Since(r.questionStart)
	secs := int((remaining + time.Second - 1) / time.Second)
	if secs >= 1 {
		r.broadcast(network.EventCountdown, CountdownPayload{Remaining: secs})
	}
}

func (r *Room) handleNext(userID int64) error {
	if userID != r.HostID {
		return ErrNotHost
	}
	if r.status != state.QuestionEnded {
		return ErrInvalidState
	}

	if r.currentIndex+1 < len(r.questions) {
		r.currentIndex++
		r.setStatus(state.InProgress)
		r.startQuestion()
		return nil
	}

	r.finish()
	return nil
}

func (r *Room) handleSubmit(userID int64, answerIndex int) error {
	p, exists := r.players[userID]
	if !exists {
		return ErrNotInRoom
	}
	if r.status != state.InProgress {
		return ErrInvalidState
	}

	// 时间是判定依据，而非状态: 即使QUESTION_ENDED转换尚未落地，
	// 超窗的作答也必须拒绝
	elapsed := time.Since(r.questionStart)
	if elapsed >= r.settings.QuestionTimeLimit {
		return ErrAnswerWindowClosed
	}

	for _, a := range r.answers {
		if a.PlayerID == userID {
			return ErrAlreadyAnswered
		}
	}

	question := r.questions[r.currentIndex]
	answer := Answer{
		PlayerID:    userID,
		ChosenIndex: answerIndex,
		Elapsed:     elapsed,
		IsCorrect:   answerIndex == question.CorrectIndex,
	}
	if answer.IsCorrect {
		answer.Points = scorePoints(r.settings.MaxPoints, r.settings.QuestionTimeLimit, elapsed)
		p.Score += answer.Points
	}
	r.answers = append(r.answers, answer)

	if r.settings.OnAnswerAccepted != nil {
		r.settings.OnAnswerAccepted(elapsed)
	}

	// 作答进度推给主持人
	r.sendToHost(network.EventAnswerReceived, AnswerReceivedPayload{
		PlayerName:   p.Name,
		AnswersCount: len(r.answers),
		TotalPlayers: len(r.players),
	})
	return nil
}

func (r *Room) handleHostLost() {
	if state.Terminal(r.status) {
		return
	}

	r.broadcast(network.EventTeacherDisconnected, TeacherDisconnectedPayload{
		Message: "Teacher disconnected. Quiz ended.",
	})
	r.finish()
}

// --- 内部状态迁移 (仅worker调用) ---

// startQuestion 开启当前题目的答题窗口
func (r *Room) startQuestion() {
	r.answers = nil
	r.questionStart = time.Now()

	question := r.questions[r.currentIndex]
	r.broadcast(network.EventQuestionStarted, QuestionStartedPayload{
		Word:           question.Word,
		Options:        question.Options,
		QuestionNumber: r.currentIndex + 1,
		TotalQuestions: len(r.questions),
		TimeLimit:      int(r.settings.QuestionTimeLimit / time.Second),
	})

	// 到期与倒计时任务都带上题目下标作为代数标签，
	// 防止被跳过题目的陈旧定时器误伤后面的题目
	index := r.currentIndex
	r.questionTimerID = r.timers.Schedule(r.settings.QuestionTimeLimit, 0, func() {
		r.enqueue(command{kind: cmdExpire, questionIndex: index})
	})
	r.countdownTimerID = r.timers.Schedule(time.Second, time.Second, func() {
		r.enqueue(command{kind: cmdTick, questionIndex: index})
	})
}

// endQuestion 冻结作答、计算排行榜增量并广播结果。
// skip与到期之间谁先到谁生效，这里必须幂等。
func (r *Room) endQuestion() {
	r.cancelQuestionTimers()
	r.setStatus(state.QuestionEnded)

	question := r.questions[r.currentIndex]
	board := ComputeLeaderboard(r.playersByJoinOrder(), r.answers, r.prevBoard)

	r.broadcast(network.EventQuestionEnded, QuestionEndedPayload{
		Question: QuestionReveal{
			Word:          question.Word,
			Options:       question.Options,
			CorrectAnswer: question.CorrectAnswer,
			CorrectIndex:  question.CorrectIndex,
		},
		Leaderboard:    board,
		AnswersCount:   len(r.answers),
		TotalPlayers:   len(r.players),
		QuestionNumber: r.currentIndex + 1,
		TotalQuestions: len(r.questions),
	})

	r.prevBoard = SnapshotRanks(board)
}

// finish 终态: 广播最终排行榜并安排宽限期后的房间移除。
// 移除任务的id要记下来: 房间被提前关闭(清扫)时必须取消，
// 否则陈旧回调会误删复用了同一房间码的新房间。
func (r *Room) finish() {
	r.cancelQuestionTimers()
	if state.Terminal(r.status) {
		return
	}
	r.setStatus(state.Finished)

	board := ComputeLeaderboard(r.playersByJoinOrder(), r.answers, r.prevBoard)
	r.broadcast(network.EventQuizFinished, QuizFinishedPayload{
		FinalLeaderboard: board,
		TotalQuestions:   len(r.questions),
	})

	if r.removeFunc != nil {
		code := r.Code
		remove := r.removeFunc
		r.removalTimerID = r.timers.Schedule(r.settings.RemovalGrace, 0, func() {
			remove(code, r)
		})
	}
}

// setStatus 所有状态变更的唯一出口，由转换表把关
func (r *Room) setStatus(to state.Status) {
	next, err := state.Transition(r.status, to)
	if err != nil {
		logger.Log.Errorf("room %s: refused transition %s -> %s", r.Code, r.status, to)
		return
	}
	r.status = next
}

func (r *Room) cancelQuestionTimers() {
	if r.questionTimerID != 0 {
		r.timers.Remove(r.questionTimerID)
		r.questionTimerID = 0
	}
	if r.countdownTimerID != 0 {
		r.timers.Remove(r.countdownTimerID)
		r.countdownTimerID = 0
	}
}

// playersByJoinOrder 按加入顺序返回玩家，排行榜的同分定序依赖它
func (r *Room) playersByJoinOrder() []*Player {
	players := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		return players[i].joinOrder < players[j].joinOrder
	})
	return players
}

func (r *Room) connectedCount() int {
	count := 0
	for _, p := range r.players {
		if p.IsConnected {
			count++
		}
	}
	return count
}

func (r *Room) snapshot() Info {
	// 开赛前还没有"当前题目"
	current := 0
	if r.status != state.Waiting && r.currentIndex < len(r.questions) {
		current = r.currentIndex + 1
	}
	return Info{
		Code:            r.Code,
		HostID:          r.HostID,
		HostName:        r.HostName,
		Status:          r.status,
		IsLocked:        r.IsLocked,
		PlayersCount:    len(r.players),
		ConnectedCount:  r.connectedCount(),
		NumQuestions:    len(r.questions),
		CurrentQuestion: current,
		AnswersCount:    len(r.answers),
		CreatedAt:       r.CreatedAt,
		Players:         ComputeLeaderboard(r.playersByJoinOrder(), r.answers, r.prevBoard),
	}
}

func (r *Room) broadcast(event string, payload interface{}) {
	if err := r.broadcaster.BroadcastToRoom(r.Code, event, payload); err != nil {
		logger.Log.Warnf("broadcast %s to room %s failed: %v", event, r.Code, err)
	}
}

func (r *Room) sendToHost(event string, payload interface{}) {
	if err := r.broadcaster.SendToUser(r.HostID, event, payload); err != nil {
		logger.Log.Warnf("send %s to host of room %s failed: %v", event, r.Code, err)
	}
}

// scorePoints 按答题速度计分: floor(max * (limit-elapsed)/limit)，不为负
func scorePoints(maxPoints int, limit, elapsed time.Duration) int {
	if elapsed >= limit {
		return 0
	}
	points := int(float64(maxPoints) * (limit - elapsed).Seconds() / limit.Seconds())
	if points < 0 {
		return 0
	}
	return points
}
