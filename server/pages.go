package server

import (
	"net/http"
	"strconv"

	"github.com/jrsteele09/scaffold-dashboard/backend"
	"github.com/jrsteele09/scaffold-dashboard/sessions"
)

// pageData is the part of every template model the layout uses.
type pageData struct {
	AppName string
	Title   string
	Active  string // Nav entry to highlight
	User    *sessions.Session
	Error   string
	Message string
}

func (s *Server) basePage(r *http.Request, title, active string) pageData {
	q := r.URL.Query()
	return pageData{
		AppName: s.config.GetAppName(),
		Title:   title,
		Active:  active,
		User:    sessionFromContext(r.Context()),
		Error:   q.Get("error"),
		Message: q.Get("message"),
	}
}

// pager is the model for the previous/next links under a list.
type pager struct {
	Page       int
	TotalPages int
	TotalDocs  int
	HasPrev    bool
	HasNext    bool
	Query      string // Extra query string carried by the links, e.g. "&search=acme"
}

func newPager(p backend.Pagination, query string) pager {
	return pager{
		Page:       p.Page,
		TotalPages: p.TotalPages,
		TotalDocs:  p.TotalDocs,
		HasPrev:    p.HasPrev || p.Page > 1,
		HasNext:    p.HasNext || (p.TotalPages > 0 && p.Page < p.TotalPages),
		Query:      query,
	}
}

// pageParam reads ?page=, defaulting to 1.
func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
