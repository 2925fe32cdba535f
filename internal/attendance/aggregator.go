package attendance

import (
	"sort"
	"strings"

	"AttendanceBot/internal/model"
)

// MemberDays 一个出勤成员及其在窗口内的去重天数
type MemberDays struct {
	Member model.Member `json:"member"`
	Days   int          `json:"days"`
	Dates  []string     `json:"dates"` // 升序
}

// Report 聚合结果。Present 按天数降序，同天数保持花名册顺序。
type Report struct {
	Window      Window         `json:"window"`
	Present     []MemberDays   `json:"present"`
	Absent      []model.Member `json:"absent"`
	RosterKnown bool           `json:"roster_known"`
	Exclusions  []string       `json:"exclusions,omitempty"`
	EventCount  int            `json:"event_count"`
}

// Empty 没有花名册也没有任何事件，渲染为"无可报告"。
func (r Report) Empty() bool {
	return len(r.Present) == 0 && len(r.Absent) == 0
}

// Excluded 机器人或显示名包含任一排除项（大小写不敏感）的成员不参与统计。
func Excluded(m model.Member, exclusions []string) bool {
	if m.IsBot {
		return true
	}
	name := strings.ToLower(m.DisplayName)
	for _, pattern := range exclusions {
		p := strings.ToLower(strings.TrimSpace(pattern))
		if p != "" && strings.Contains(name, p) {
			return true
		}
	}
	return false
}

// FilterRoster 去掉被排除的成员，保持原有顺序。
func FilterRoster(roster []model.Member, exclusions []string) []model.Member {
	filtered := make([]model.Member, 0, len(roster))
	for _, m := range roster {
		if !Excluded(m, exclusions) {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// Aggregate 把事件与花名册聚合为出勤/缺勤。
//
// 花名册为空（获取失败）时按事件作者 ID 统计出勤，缺勤留空：
// 没有花名册就无法判断谁缺勤。
func Aggregate(events []model.AttendanceEvent, roster []model.Member, window Window, exclusions []string) (Report, error) {
	if err := window.Validate(); err != nil {
		return Report{}, err
	}

	daysByMember := make(map[string]map[string]struct{})
	eventCount := 0
	for _, ev := range events {
		if ev.MemberID == "" || !window.Contains(ev.Date) {
			continue
		}
		eventCount++
		dates, ok := daysByMember[ev.MemberID]
		if !ok {
			dates = make(map[string]struct{})
			daysByMember[ev.MemberID] = dates
		}
		dates[ev.Date] = struct{}{}
	}

	report := Report{
		Window:     window,
		Exclusions: exclusions,
		EventCount: eventCount,
	}

	if len(roster) == 0 {
		ids := make([]string, 0, len(daysByMember))
		for id := range daysByMember {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			report.Present = append(report.Present, memberDays(model.Member{ID: id}, daysByMember[id]))
		}
		rank(report.Present)
		return report, nil
	}

	report.RosterKnown = true
	for _, m := range FilterRoster(roster, exclusions) {
		if dates, ok := daysByMember[m.ID]; ok && len(dates) > 0 {
			report.Present = append(report.Present, memberDays(m, dates))
			continue
		}
		report.Absent = append(report.Absent, m)
	}
	rank(report.Present)

	return report, nil
}

func memberDays(m model.Member, dates map[string]struct{}) MemberDays {
	sorted := make([]string, 0, len(dates))
	for d := range dates {
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)
	return MemberDays{Member: m, Days: len(sorted), Dates: sorted}
}

func rank(present []MemberDays) {
	sort.SliceStable(present, func(i, j int) bool {
		return present[i].Days > present[j].Days
	})
}
