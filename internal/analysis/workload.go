// Package analysis aggregates complaint data into workload reports.
// Everything here is pure: it reads the slices it is given and never mutates them.
package analysis

import (
	"time"

	"resolveflow/backend/internal/config"
	"resolveflow/backend/internal/models"
)

const dayLayout = "2006-01-02"

// Overall counts complaints by assignment.
type Overall struct {
	Total      int `json:"total"`
	Assigned   int `json:"assigned"`
	Unassigned int `json:"unassigned"`
}

// StatusCount is one bar of a status distribution.
type StatusCount struct {
	Name  models.Status `json:"name"`
	Value int           `json:"value"`
}

// DailyTrend is one day of the trailing trend window.
type DailyTrend struct {
	Date               string `json:"date"`
	NewComplaints      int    `json:"newComplaints"`
	ResolvedComplaints int    `json:"resolvedComplaints"`
}

// DailyCount is one day of an agent's resolved series.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// AgentWorkload is the load carried by one agent.
type AgentWorkload struct {
	AgentID       string        `json:"agentId"`
	Name          string        `json:"username"`
	Email         string        `json:"email"`
	Assigned      int           `json:"assigned"`
	Pending       int           `json:"pending"`
	InProgress    int           `json:"inProgress"`
	ResolvedToday int           `json:"resolvedToday"`
	Distribution  []StatusCount `json:"statusDistribution"`
	DailyResolved []DailyCount  `json:"dailyResolved"`
}

// Workload is the full report.
type Workload struct {
	Overall            Overall         `json:"overall"`
	StatusDistribution []StatusCount   `json:"systemStatusDistribution"`
	DailyTrends        []DailyTrend    `json:"systemDailyTrends"`
	Agents             []AgentWorkload `json:"agentWorkloadDetails"`
}

// Input is what ComputeWorkload aggregates. Complaints must carry their
// timeline; resolution days are read from it.
type Input struct {
	Complaints []models.Complaint
	Agents     []models.User
	Now        time.Time
	Location   *time.Location
}

// ComputeWorkload builds the report. The trend window is the TrendWindowDays
// calendar days ending today inclusive, with a bucket for every day.
func ComputeWorkload(in Input) Workload {
	loc := in.Location
	if loc == nil {
		loc = time.Local
	}
	days := TrendDays(in.Now, loc)
	today := days[len(days)-1]

	w := Workload{
		StatusDistribution: distribution(in.Complaints),
		DailyTrends:        make([]DailyTrend, len(days)),
		Agents:             make([]AgentWorkload, 0, len(in.Agents)),
	}

	newByDay := make(map[string]int)
	resolvedByDay := make(map[string]int)
	for i := range in.Complaints {
		c := &in.Complaints[i]
		w.Overall.Total++
		if c.IsAssigned() {
			w.Overall.Assigned++
		} else {
			w.Overall.Unassigned++
		}
		newByDay[c.CreatedAt.In(loc).Format(dayLayout)]++
		for day := range resolvedDays(c, loc) {
			resolvedByDay[day]++
		}
	}
	for i, day := range days {
		w.DailyTrends[i] = DailyTrend{
			Date:               day,
			NewComplaints:      newByDay[day],
			ResolvedComplaints: resolvedByDay[day],
		}
	}

	for _, agent := range in.Agents {
		w.Agents = append(w.Agents, agentWorkload(agent, in.Complaints, days, today, loc))
	}
	return w
}

// TrendDays returns the window's dates, oldest first.
func TrendDays(now time.Time, loc *time.Location) []string {
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	out := make([]string, config.TrendWindowDays)
	for i := 0; i < config.TrendWindowDays; i++ {
		out[i] = midnight.AddDate(0, 0, i-(config.TrendWindowDays-1)).Format(dayLayout)
	}
	return out
}

func distribution(complaints []models.Complaint) []StatusCount {
	counts := make(map[models.Status]int, len(models.AllStatuses))
	for i := range complaints {
		counts[complaints[i].Status]++
	}
	out := make([]StatusCount, len(models.AllStatuses))
	for i, st := range models.AllStatuses {
		out[i] = StatusCount{Name: st, Value: counts[st]}
	}
	return out
}

// resolvedDays returns the set of days on which c moved to Resolved.
func resolvedDays(c *models.Complaint, loc *time.Location) map[string]struct{} {
	days := make(map[string]struct{})
	for _, e := range c.TimelineEvents {
		if e.Kind == models.EventStatusUpdated && e.NewValue == string(models.StatusResolved) {
			days[e.CreatedAt.In(loc).Format(dayLayout)] = struct{}{}
		}
	}
	return days
}

func agentWorkload(agent models.User, complaints []models.Complaint, days []string, today string, loc *time.Location) AgentWorkload {
	aw := AgentWorkload{
		AgentID:       agent.ID,
		Name:          agent.Name,
		Email:         agent.Email,
		DailyResolved: make([]DailyCount, len(days)),
	}

	var mine []models.Complaint
	resolvedByDay := make(map[string]int)
	for i := range complaints {
		c := &complaints[i]
		if c.AssignedTo != agent.ID {
			continue
		}
		mine = append(mine, *c)
		aw.Assigned++
		switch c.Status {
		case models.StatusAssigned, models.StatusReopened:
			aw.Pending++
		case models.StatusInProgress:
			aw.InProgress++
		}
		for day := range resolvedDays(c, loc) {
			resolvedByDay[day]++
		}
	}

	aw.ResolvedToday = resolvedByDay[today]
	aw.Distribution = distribution(mine)
	for i, day := range days {
		aw.DailyResolved[i] = DailyCount{Date: day, Count: resolvedByDay[day]}
	}
	return aw
}
