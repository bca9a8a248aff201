// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package main

import (
	"cmp"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/tigerwill90/waypoint"
)

// page is the demo content served by the serve command.
type page struct {
	UpdatedAt time.Time `json:"updatedAt"`
	ID        string    `json:"id"`
	Title     string    `json:"title" validate:"required,max=200"`
	Body      string    `json:"body"`
}

func (p page) EntityID() string {
	return p.ID
}

type pageParams struct {
	ID string `token:"id"`
}

type pageInput struct {
	Title string `json:"title" validate:"required,max=200"`
	Body  string `json:"body"`
}

// pageStore is an in-memory store. Every write requests a rebuild, as a real content service would.
type pageStore struct {
	onChange func()
	pages    map[string]page
	mu       sync.RWMutex
	seq      int
}

func newPageStore(onChange func()) *pageStore {
	s := &pageStore{
		pages:    make(map[string]page),
		onChange: onChange,
	}
	s.pages["home"] = page{ID: "home", Title: "Home", Body: "Welcome", UpdatedAt: time.Now()}
	return s
}

func (s *pageStore) register(b *waypoint.Builder) error {
	return errors.Join(
		b.AddRedirect(http.MethodGet, "/", "/home", waypoint.WithRedirectCode(http.StatusFound), waypoint.WithName("index")),
		waypoint.Add(b, http.MethodGet, "/home", s.home, waypoint.WithName("home"), waypoint.WithContentID("home")),
		waypoint.Add(b, http.MethodGet, "/v1/page", s.list, waypoint.WithName("list pages")),
		waypoint.Add(b, http.MethodGet, "/v1/page/{id}", s.get, waypoint.WithName("get page")),
		waypoint.Add(b, http.MethodPost, "/v1/page", s.create, waypoint.WithName("create page")),
		waypoint.Add(b, http.MethodPut, "/v1/page/{id}", s.update, waypoint.WithName("update page")),
		waypoint.Add(b, http.MethodDelete, "/v1/page/{id}", s.delete, waypoint.WithName("delete page")),
	)
}

func (s *pageStore) home(c *waypoint.Context, _ waypoint.NoParams, _ waypoint.NoBody) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pages["home"].Body, nil
}

func (s *pageStore) list(c *waypoint.Context, _ waypoint.NoParams, _ waypoint.NoBody) (waypoint.Stream[page], error) {
	s.mu.RLock()
	pages := make([]page, 0, len(s.pages))
	for _, p := range s.pages {
		pages = append(pages, p)
	}
	s.mu.RUnlock()
	slices.SortFunc(pages, func(a, b page) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return waypoint.StreamOf(slices.Values(pages)), nil
}

func (s *pageStore) get(c *waypoint.Context, params pageParams, _ waypoint.NoBody) (page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pages[params.ID]
	if !ok {
		return page{}, waypoint.NewHTTPError(http.StatusNotFound, nil)
	}
	return p, nil
}

func (s *pageStore) create(c *waypoint.Context, _ waypoint.NoParams, in pageInput) (page, error) {
	s.mu.Lock()
	s.seq++
	p := page{ID: "p" + strconv.Itoa(s.seq), Title: in.Title, Body: in.Body, UpdatedAt: time.Now()}
	s.pages[p.ID] = p
	s.mu.Unlock()
	s.onChange()
	return p, nil
}

func (s *pageStore) update(c *waypoint.Context, params pageParams, in pageInput) (page, error) {
	s.mu.Lock()
	p, ok := s.pages[params.ID]
	if !ok {
		s.mu.Unlock()
		return page{}, waypoint.NewHTTPError(http.StatusNotFound, nil)
	}
	p.Title, p.Body, p.UpdatedAt = in.Title, in.Body, time.Now()
	s.pages[p.ID] = p
	s.mu.Unlock()
	s.onChange()
	return p, nil
}

func (s *pageStore) delete(c *waypoint.Context, params pageParams, _ waypoint.NoBody) (waypoint.NoContent, error) {
	s.mu.Lock()
	_, ok := s.pages[params.ID]
	delete(s.pages, params.ID)
	s.mu.Unlock()
	if !ok {
		return waypoint.NoContent{}, waypoint.NewHTTPError(http.StatusNotFound, nil)
	}
	s.onChange()
	return waypoint.NoContent{}, nil
}

// permalinks rewrites /p/{title} to the page route. Pages keep precedence over permalinks.
func (s *pageStore) permalinks(b *waypoint.Builder) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.pages {
		from := "/p/" + slug(p.Title)
		if b.Has(http.MethodGet, from) {
			continue
		}
		if err := b.AddRewrite(http.MethodGet, from, "/v1/page/"+p.ID, waypoint.WithContentID(p.ID), waypoint.WithName(p.Title)); err != nil {
			return err
		}
	}
	return nil
}

func slug(title string) string {
	buf := make([]byte, 0, len(title))
	for i := 0; i < len(title); i++ {
		c := title[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			buf = append(buf, c)
		case c >= 'A' && c <= 'Z':
			buf = append(buf, c+('a'-'A'))
		case len(buf) > 0 && buf[len(buf)-1] != '-':
			buf = append(buf, '-')
		}
	}
	if len(buf) > 0 && buf[len(buf)-1] == '-' {
		buf = buf[:len(buf)-1]
	}
	if len(buf) == 0 {
		return "untitled"
	}
	return string(buf)
}
