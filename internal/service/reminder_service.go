package service

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"planner/internal/mirror"
	"planner/internal/model"
)

// SnapshotSource is anything that can hand out a read-only copy of the
// planner collections; in production that is the mirror.
type SnapshotSource interface {
	Snapshot() mirror.Snapshot
}

// ReminderService builds human-readable summaries for daily notifications.
type ReminderService struct {
	src SnapshotSource
}

func NewReminderService(src SnapshotSource) *ReminderService {
	return &ReminderService{src: src}
}

// DailyAgenda renders today's picture: overdue and due tasks, the day's
// schedule blocks and goal progress, as a Telegram-ready HTML message.
func (s *ReminderService) DailyAgenda(now time.Time) string {
	snap := s.src.Snapshot()

	var overdue, dueToday []model.Task
	for _, t := range snap.Tasks {
		if t.Done || t.DueDate == nil {
			continue
		}
		due := t.DueDate.In(now.Location())
		switch {
		case due.Before(startOfDay(now)):
			overdue = append(overdue, t)
		case sameDay(due, now):
			dueToday = append(dueToday, t)
		}
	}
	byDue := func(tasks []model.Task) {
		sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].DueDate.Before(*tasks[j].DueDate) })
	}
	byDue(overdue)
	byDue(dueToday)

	var today []model.ScheduleBlock
	for _, b := range snap.Blocks {
		if sameDay(b.ScheduledDate.In(now.Location()), now) {
			today = append(today, b)
		}
	}
	sort.SliceStable(today, func(i, j int) bool { return today[i].Time < today[j].Time })

	var builder strings.Builder
	builder.WriteString("<b>Daily agenda</b>\n")
	builder.WriteString(now.Format("Mon, 02 Jan 2006"))
	builder.WriteString("\n\n")

	builder.WriteString("<b>Overdue</b>\n")
	if len(overdue) == 0 {
		builder.WriteString("— nothing overdue\n")
	}
	for _, t := range overdue {
		builder.WriteString(formatTaskLine(t, now))
	}

	builder.WriteString("\n<b>Due today</b>\n")
	if len(dueToday) == 0 {
		builder.WriteString("— nothing due\n")
	}
	for _, t := range dueToday {
		builder.WriteString(formatTaskLine(t, now))
	}

	builder.WriteString("\n<b>Schedule</b>\n")
	if len(today) == 0 {
		builder.WriteString("— empty day\n")
	}
	for _, b := range today {
		builder.WriteString(fmt.Sprintf("%s (%dm) %s\n", b.Time, b.Duration, html.EscapeString(strings.TrimSpace(b.Title))))
	}

	var active []model.Goal
	for _, g := range snap.Goals {
		if g.CurrentAmount < g.TargetAmount {
			active = append(active, g)
		}
	}
	if len(active) > 0 {
		builder.WriteString("\n<b>Goals</b>\n")
		for _, g := range active {
			builder.WriteString(formatGoalLine(g))
		}
	}

	return strings.TrimSpace(builder.String())
}

func formatTaskLine(t model.Task, now time.Time) string {
	title := html.EscapeString(strings.TrimSpace(t.Title))
	line := "• " + title
	if t.Priority == model.PriorityHigh {
		line += " <i>(high)</i>"
	}
	if t.DueDate != nil {
		d := t.DueDate.In(now.Location())
		if d.Before(startOfDay(now)) {
			line += fmt.Sprintf(" — was due %s", d.Format("02 Jan"))
		}
	}
	return line + "\n"
}

func formatGoalLine(g model.Goal) string {
	title := html.EscapeString(strings.TrimSpace(g.Title))
	pct := 0.0
	if g.TargetAmount > 0 {
		pct = g.CurrentAmount / g.TargetAmount * 100
	}
	line := fmt.Sprintf("• %s: %.0f/%.0f (%.0f%%)", title, g.CurrentAmount, g.TargetAmount, pct)
	if g.Deadline != nil {
		line += " by " + g.Deadline.Format("02 Jan")
	}
	return line + "\n"
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
