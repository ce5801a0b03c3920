// room/leaderboard.go
package room

import (
	"fmt"
	"sort"
)

// RankSnapshot 上一题结束时记录的 玩家->名次 快照，仅用于位次变化计算
type RankSnapshot struct {
	UserID int64
	Rank   int
}

// LeaderboardEntry 排行榜条目。字段名与线上协议严格一致。
type LeaderboardEntry struct {
	Rank            int    `json:"rank"`
	UserID          int64  `json:"user_id"`
	Name            string `json:"name"`
	Score           int    `json:"score"`
	IsConnected     bool   `json:"is_connected"`
	IsTop3          bool   `json:"is_top_3"`
	PointsAdded     int    `json:"points_added"`
	PreviousRank    *int   `json:"previous_rank"`
	PositionChange  int    `json:"position_change"`
	ChangeIndicator string `json:"change_indicator"` // up / down / same / new
	ChangeText      string `json:"change_text"`      // "+2" / "-1" / "0" / "NEW"
}

// ComputeLeaderboard 是 (玩家, 本题作答, 上次快照) -> 排行榜 的纯函数。
// players 必须按加入顺序传入: 得分降序排序是稳定的，同分按加入顺序定序。
func ComputeLeaderboard(players []*Player, answers []Answer, previous []RankSnapshot) []LeaderboardEntry {
	pointsAdded := make(map[int64]int, len(answers))
	for _, a := range answers {
		pointsAdded[a.PlayerID] = a.Points
	}

	prevRanks := make(map[int64]int, len(previous))
	for _, s := range previous {
		prevRanks[s.UserID] = s.Rank
	}

	entries := make([]LeaderboardEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, LeaderboardEntry{
			UserID:      p.ID,
			Name:        p.Name,
			Score:       p.Score,
			IsConnected: p.IsConnected,
			PointsAdded: pointsAdded[p.ID],
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	for i := range entries {
		e := &entries[i]
		e.Rank = i + 1
		e.IsTop3 = e.Rank <= 3

		prev, hadPrev := prevRanks[e.UserID]
		if !hadPrev {
			e.ChangeIndicator = "new"
			e.ChangeText = "NEW"
			continue
		}

		previousRank := prev
		e.PreviousRank = &previousRank
		e.PositionChange = previousRank - e.Rank

		switch {
		case e.PositionChange > 0:
			e.ChangeIndicator = "up"
			e.ChangeText = fmt.Sprintf("+%d", e.PositionChange)
		case e.PositionChange < 0:
			e.ChangeIndicator = "down"
			e.ChangeText = fmt.Sprintf("%d", e.PositionChange)
		default:
			e.ChangeIndicator = "same"
			e.ChangeText = "0"
		}
	}

	return entries
}

// SnapshotRanks 从排行榜提取下一题用的名次快照
func SnapshotRanks(entries []LeaderboardEntry) []RankSnapshot {
	snapshot := make([]RankSnapshot, 0, len(entries))
	for _, e := range entries {
		snapshot = append(snapshot, RankSnapshot{UserID: e.UserID, Rank: e.Rank})
	}
	return snapshot
}
