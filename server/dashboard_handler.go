package server

import (
	"net/http"
	"time"

	"github.com/jrsteele09/scaffold-dashboard/backend"
	"github.com/jrsteele09/scaffold-dashboard/sessions"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	dashboardUserLimit = 100
	dashboardJobLimit  = 50
	growthDays         = 7
)

var weekdayLabels = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

type ChartPoint struct {
	Label string
	Value int
}

type GrowthPoint struct {
	Label string
	Users int
	Jobs  int
}

// DashboardStats is what the dashboard shows. Dates are bucketed in UTC.
type DashboardStats struct {
	TotalUsers   int
	StaffCount   int
	ManagerCount int
	TotalJobs    int

	JobsByWeekday []ChartPoint
	WeekdayMax    int
	Growth        []GrowthPoint
	GrowthMax     int
}

type dashboardPageData struct {
	pageData
	Stats DashboardStats
}

// BuildDashboardStats derives the cards and charts from the first page of
// users and jobs.
func BuildDashboardStats(users backend.Page[backend.User], jobs backend.Page[backend.Job], now time.Time) DashboardStats {
	stats := DashboardStats{
		TotalUsers: users.Pagination.TotalDocs,
		TotalJobs:  jobs.Pagination.TotalDocs,
	}
	for _, u := range users.Results {
		switch sessions.Role(u.Role) {
		case sessions.RoleStaff:
			stats.StaffCount++
		case sessions.RoleManager:
			stats.ManagerCount++
		}
	}

	var weekdays [7]int
	jobsByDay := map[string]int{}
	for _, j := range jobs.Results {
		if j.CreatedAt.IsZero() {
			continue
		}
		created := j.CreatedAt.UTC()
		weekdays[created.Weekday()]++
		jobsByDay[created.Format(time.DateOnly)]++
	}
	for i, label := range weekdayLabels {
		stats.JobsByWeekday = append(stats.JobsByWeekday, ChartPoint{Label: label, Value: weekdays[i]})
		stats.WeekdayMax = max(stats.WeekdayMax, weekdays[i])
	}

	usersByDay := map[string]int{}
	for _, u := range users.Results {
		if !u.CreatedAt.IsZero() {
			usersByDay[u.CreatedAt.UTC().Format(time.DateOnly)]++
		}
	}
	today := now.UTC()
	for i := growthDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		key := day.Format(time.DateOnly)
		point := GrowthPoint{Label: day.Format("Jan 2"), Users: usersByDay[key], Jobs: jobsByDay[key]}
		stats.Growth = append(stats.Growth, point)
		stats.GrowthMax = max(stats.GrowthMax, point.Users, point.Jobs)
	}
	return stats
}

// DashboardHandler loads users and jobs concurrently and renders the overview.
func (s *Server) DashboardHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("dashboard.html")

	return func(w http.ResponseWriter, r *http.Request) {
		var (
			users backend.Page[backend.User]
			jobs  backend.Page[backend.Job]
		)
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() error {
			var err error
			users, err = s.api.Users(ctx, 1, dashboardUserLimit)
			return err
		})
		g.Go(func() error {
			var err error
			jobs, err = s.api.Jobs(ctx, 1, dashboardJobLimit)
			return err
		})
		err := g.Wait()
		if s.handleAPIError(w, r, err) {
			return
		}

		data := dashboardPageData{pageData: s.basePage(r, "Dashboard", RouteDashboard)}
		if err != nil {
			log.Err(err).Msg("Dashboard: loading data")
			data.Error = backend.MessageFrom(err, "Failed to load dashboard data")
		}
		data.Stats = BuildDashboardStats(users, jobs, time.Now())
		render(w, tmpl, http.StatusOK, data)
	}
}
