// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

// Package waypointdebug provides debugging handlers exposing the live routing tree.
package waypointdebug

import (
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/tigerwill90/waypoint"
)

// Snapshot is the JSON document served by [Handler].
type Snapshot struct {
	BuiltAt   time.Time               `json:"builtAt"`
	ID        string                  `json:"id"`
	Method    string                  `json:"method"`
	Endpoints []waypoint.Endpoint     `json:"endpoints"`
	Nodes     []waypoint.NodeMetadata `json:"nodes"`
}

// NewSnapshot describes the tree of rt for the given method.
func NewSnapshot(rt *waypoint.Router, method string) Snapshot {
	snap := Snapshot{
		ID:        rt.ID(),
		BuiltAt:   rt.BuiltAt(),
		Method:    method,
		Endpoints: make([]waypoint.Endpoint, 0, rt.Len()),
		Nodes:     rt.Metadata(method),
	}
	for ep := range rt.Endpoints() {
		if ep.Method == method {
			snap.Endpoints = append(snap.Endpoints, ep)
		}
	}
	if snap.Nodes == nil {
		snap.Nodes = []waypoint.NodeMetadata{}
	}
	return snap
}

// Handler returns an http.Handler serving the live tree of svc as JSON. The method is selected with the "method"
// query parameter and defaults to GET.
func Handler(svc *waypoint.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := strings.ToUpper(r.URL.Query().Get("method"))
		if method == "" {
			method = http.MethodGet
		}
		switch method {
		case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
		default:
			http.Error(w, "unsupported method "+method, http.StatusBadRequest)
			return
		}

		rt := svc.Current()
		buf, err := json.Marshal(NewSnapshot(rt, method))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set(waypoint.HeaderContentType, waypoint.MIMEApplicationJSON)
		w.Header().Set(waypoint.HeaderXBuildID, rt.ID())
		_, _ = w.Write(buf)
	})
}
