package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

const (
	PathUsers   = "/users"
	PathJobs    = "/jobs"
	PathClients = "/clients"
)

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	return q
}

func (c *Client) Users(ctx context.Context, page, limit int) (Page[User], error) {
	p, err := send[Page[User]](ctx, c, http.MethodGet, PathUsers, pageQuery(page, limit), nil)
	if err != nil {
		return Page[User]{}, err
	}
	return p.withDefaults(page, limit), nil
}

func (c *Client) Jobs(ctx context.Context, page, limit int) (Page[Job], error) {
	p, err := send[Page[Job]](ctx, c, http.MethodGet, PathJobs, pageQuery(page, limit), nil)
	if err != nil {
		return Page[Job]{}, err
	}
	return p.withDefaults(page, limit), nil
}

func (c *Client) Job(ctx context.Context, id string) (*Job, error) {
	return send[*Job](ctx, c, http.MethodGet, PathJobs+"/"+url.PathEscape(id), nil, nil)
}

// Clients lists clients; an empty search returns everything.
func (c *Client) Clients(ctx context.Context, page, limit int, search string) (Page[Customer], error) {
	q := pageQuery(page, limit)
	if search != "" {
		q.Set("search", search)
	}
	p, err := send[Page[Customer]](ctx, c, http.MethodGet, PathClients, q, nil)
	if err != nil {
		return Page[Customer]{}, err
	}
	return p.withDefaults(page, limit), nil
}

func (c *Client) CreateClient(ctx context.Context, in ClientInput) (*Customer, error) {
	return send[*Customer](ctx, c, http.MethodPost, PathClients, nil, in)
}

func (c *Client) UpdateClient(ctx context.Context, id string, in ClientInput) (*Customer, error) {
	return send[*Customer](ctx, c, http.MethodPut, PathClients+"/"+url.PathEscape(id), nil, in)
}

func (c *Client) DeleteClient(ctx context.Context, id string) error {
	_, err := send[json.RawMessage](ctx, c, http.MethodDelete, PathClients+"/"+url.PathEscape(id), nil, nil)
	return err
}
