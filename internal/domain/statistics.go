package domain

import (
	"sort"
	"time"
)

// GroupStatistics summarizes the sessions sharing a test type or category.
type GroupStatistics struct {
	Key                    string        `json:"key"`
	TotalSessions          int           `json:"total_sessions"`
	CompletedSessions      int           `json:"completed_sessions"`
	CompletionRate         float64       `json:"completion_rate"`
	AverageSessionDuration time.Duration `json:"average_session_duration"`
}

// Statistics are cross-session aggregates. They are always recomputed from
// session rows; nothing here is maintained incrementally.
type Statistics struct {
	TotalSessions          int               `json:"total_sessions"`
	CreatedSessions        int               `json:"created_sessions"`
	InProgressSessions     int               `json:"in_progress_sessions"`
	CompletedSessions      int               `json:"completed_sessions"`
	AbandonedSessions      int               `json:"abandoned_sessions"`
	ExpiredSessions        int               `json:"expired_sessions"`
	AverageSessionDuration time.Duration     `json:"average_session_duration"`
	CompletionRate         float64           `json:"completion_rate"`
	ByTestType             []GroupStatistics `json:"by_test_type"`
	ByCategory             []GroupStatistics `json:"by_category"`
}

type groupAccumulator struct {
	total, completed int
	duration         time.Duration
}

func (g *groupAccumulator) add(s *Session) {
	g.total++
	if s.Status == SessionStatusCompleted {
		g.completed++
		g.duration += s.Duration()
	}
}

func (g *groupAccumulator) stats(key string) GroupStatistics {
	out := GroupStatistics{
		Key:               key,
		TotalSessions:     g.total,
		CompletedSessions: g.completed,
	}
	if g.total > 0 {
		out.CompletionRate = float64(g.completed) / float64(g.total)
	}
	if g.completed > 0 {
		out.AverageSessionDuration = g.duration / time.Duration(g.completed)
	}
	return out
}

// ComputeStatistics derives all statistics from the given sessions. The
// average duration only considers completed sessions; completion rate is 0
// when there are no sessions.
func ComputeStatistics(sessions []*Session) Statistics {
	var (
		stats      Statistics
		all        groupAccumulator
		byTestType = map[string]*groupAccumulator{}
		byCategory = map[string]*groupAccumulator{}
	)

	for _, s := range sessions {
		if s == nil {
			continue
		}
		switch s.Status {
		case SessionStatusCreated:
			stats.CreatedSessions++
		case SessionStatusInProgress:
			stats.InProgressSessions++
		case SessionStatusCompleted:
			stats.CompletedSessions++
		case SessionStatusAbandoned:
			stats.AbandonedSessions++
		case SessionStatusExpired:
			stats.ExpiredSessions++
		}
		all.add(s)
		groupFor(byTestType, s.TestTypeID).add(s)
		groupFor(byCategory, string(s.Category)).add(s)
	}

	overall := all.stats("")
	stats.TotalSessions = overall.TotalSessions
	stats.CompletionRate = overall.CompletionRate
	stats.AverageSessionDuration = overall.AverageSessionDuration
	stats.ByTestType = flattenGroups(byTestType)
	stats.ByCategory = flattenGroups(byCategory)
	return stats
}

func groupFor(groups map[string]*groupAccumulator, key string) *groupAccumulator {
	g, ok := groups[key]
	if !ok {
		g = &groupAccumulator{}
		groups[key] = g
	}
	return g
}

func flattenGroups(groups map[string]*groupAccumulator) []GroupStatistics {
	out := make([]GroupStatistics, 0, len(groups))
	for key, g := range groups {
		out = append(out, g.stats(key))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
