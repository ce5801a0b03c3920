package state

import (
	"errors"
)

// Status 表示测验房间的生命周期状态
type Status int

const (
	Waiting Status = iota // 房间已创建，等待玩家加入
	InProgress            // 当前题目答题窗口开启
	QuestionEnded         // 当前题目已结束，展示结果
	Finished              // 测验结束
)

// ErrTransitionNotAllowed is returned when a status transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

var statusNames = map[Status]string{
	Waiting:       "waiting",
	InProgress:    "in_progress",
	QuestionEnded: "question_ended",
	Finished:      "finished",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// 允许的前向转换。Finished 可以从任意状态强制到达(主持人掉线)，
// 在 CanTransition 中单独放行。
var transitions = map[Status][]Status{
	Waiting:       {InProgress},
	InProgress:    {QuestionEnded},
	QuestionEnded: {InProgress, Finished},
	Finished:      {},
}

// CanTransition 回答 from -> to 是否是合法转换
func CanTransition(from, to Status) bool {
	if to == Finished {
		return from != Finished
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition 校验并返回新状态
func Transition(from, to Status) (Status, error) {
	if !CanTransition(from, to) {
		return from, ErrTransitionNotAllowed
	}
	return to, nil
}

// Terminal 返回该状态是否不再接受任何转换
func Terminal(s Status) bool {
	return s == Finished
}
