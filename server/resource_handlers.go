package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/scaffold-dashboard/backend"
	errs "github.com/jrsteele09/scaffold-dashboard/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	usersPageSize   = 10
	clientsPageSize = 10
	jobsPageSize    = 10
)

type usersPageData struct {
	pageData
	Users []backend.User
	Pager pager
}

func (s *Server) UsersHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("users.html")

	return func(w http.ResponseWriter, r *http.Request) {
		page, err := s.api.Users(r.Context(), pageParam(r), usersPageSize)
		if s.handleAPIError(w, r, err) {
			return
		}
		data := usersPageData{pageData: s.basePage(r, "Users", RouteUsers)}
		if err != nil {
			log.Err(err).Msg("Users: list failed")
			data.Error = backend.MessageFrom(err, "Failed to load users")
		}
		data.Users = page.Results
		data.Pager = newPager(page.Pagination, "")
		render(w, tmpl, http.StatusOK, data)
	}
}

type clientsPageData struct {
	pageData
	Clients []backend.Customer
	Search  string
	Pager   pager
}

func (s *Server) ClientsHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("clients.html")

	return func(w http.ResponseWriter, r *http.Request) {
		search := strings.TrimSpace(r.URL.Query().Get("search"))
		page, err := s.api.Clients(r.Context(), pageParam(r), clientsPageSize, search)
		if s.handleAPIError(w, r, err) {
			return
		}
		data := clientsPageData{pageData: s.basePage(r, "Clients", RouteClients), Search: search}
		if err != nil {
			log.Err(err).Msg("Clients: list failed")
			data.Error = backend.MessageFrom(err, "Failed to load clients")
		}
		data.Clients = page.Results
		query := ""
		if search != "" {
			query = "&search=" + url.QueryEscape(search)
		}
		data.Pager = newPager(page.Pagination, query)
		render(w, tmpl, http.StatusOK, data)
	}
}

func clientInput(r *http.Request) (backend.ClientInput, string) {
	in := backend.ClientInput{
		ClientName:    strings.TrimSpace(r.FormValue("clientName")),
		ClientEmail:   strings.TrimSpace(r.FormValue("clientEmail")),
		ClientPhoneNo: strings.TrimSpace(r.FormValue("clientPhoneNo")),
	}
	if in.ClientName == "" {
		return in, "Client name is required"
	}
	return in, ""
}

func (s *Server) CreateClientHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, problem := clientInput(r)
		if problem != "" {
			redirectWithError(w, r, RouteClients, problem)
			return
		}
		_, err := s.api.CreateClient(r.Context(), in)
		if s.handleAPIError(w, r, err) {
			return
		}
		if err != nil {
			redirectWithError(w, r, RouteClients, backend.MessageFrom(err, "Failed to create client"))
			return
		}
		redirectSuccess(w, r, RouteClients+"?message=Client+created")
	}
}

func (s *Server) UpdateClientHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, problem := clientInput(r)
		if problem != "" {
			redirectWithError(w, r, RouteClients, problem)
			return
		}
		_, err := s.api.UpdateClient(r.Context(), r.PathValue("id"), in)
		if s.handleAPIError(w, r, err) {
			return
		}
		if err != nil {
			redirectWithError(w, r, RouteClients, backend.MessageFrom(err, "Failed to update client"))
			return
		}
		redirectSuccess(w, r, RouteClients+"?message=Client+updated")
	}
}

func (s *Server) DeleteClientHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := s.api.DeleteClient(r.Context(), r.PathValue("id"))
		if s.handleAPIError(w, r, err) {
			return
		}
		if err != nil {
			redirectWithError(w, r, RouteClients, backend.MessageFrom(err, "Failed to delete client"))
			return
		}
		redirectSuccess(w, r, RouteClients+"?message=Client+deleted")
	}
}

type jobsPageData struct {
	pageData
	Jobs  []backend.Job
	Pager pager
}

func (s *Server) JobsHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("jobs.html")

	return func(w http.ResponseWriter, r *http.Request) {
		page, err := s.api.Jobs(r.Context(), pageParam(r), jobsPageSize)
		if s.handleAPIError(w, r, err) {
			return
		}
		data := jobsPageData{pageData: s.basePage(r, "Jobs", RouteJobs)}
		if err != nil {
			log.Err(err).Msg("Jobs: list failed")
			data.Error = backend.MessageFrom(err, "Failed to load jobs")
		}
		data.Jobs = page.Results
		data.Pager = newPager(page.Pagination, "")
		render(w, tmpl, http.StatusOK, data)
	}
}

type jobPageData struct {
	pageData
	Job      *backend.Job
	Scaffold *backend.ScaffoldApplication
}

func (s *Server) JobHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("job.html")

	return func(w http.ResponseWriter, r *http.Request) {
		job, err := s.api.Job(r.Context(), r.PathValue("id"))
		if s.handleAPIError(w, r, err) {
			return
		}
		data := jobPageData{pageData: s.basePage(r, "Job details", RouteJobs)}
		status := http.StatusOK
		switch {
		case err == nil && job != nil:
			data.Job = job
			data.Scaffold = job.Scaffold()
		case err == nil, errs.Is(err, errs.ErrNotFound):
			status = http.StatusNotFound
			data.Error = "Job not found"
		default:
			log.Err(err).Str("job_id", r.PathValue("id")).Msg("Job: load failed")
			status = http.StatusBadGateway
			data.Error = backend.MessageFrom(err, "Failed to load job")
		}
		render(w, tmpl, status, data)
	}
}

// PlaceholderHandler renders a page that only shows who is signed in.
func (s *Server) PlaceholderHandler(title, active string) http.HandlerFunc {
	tmpl := mustParseTemplate("placeholder.html")

	return func(w http.ResponseWriter, r *http.Request) {
		render(w, tmpl, http.StatusOK, s.basePage(r, title, active))
	}
}

// IndexHandler sends "/" to the dashboard; every other unmatched path is a 404.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != RouteIndex {
			http.NotFound(w, r)
			return
		}
		redirectSuccess(w, r, RouteDashboard)
	}
}
