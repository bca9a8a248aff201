// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package waypoint

import (
	"encoding/json"
	"net/http"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func metadataRouter(t *testing.T) *Router {
	t.Helper()
	b := NewBuilder(nil)
	require.NoError(t, b.Handle(http.MethodGet, "/articles", emptyHandler,
		WithName("Articles"),
		WithContentID("c1"),
		WithEditURL("https://cms.example.com/edit/c1"),
	))
	require.NoError(t, b.Handle(http.MethodGet, "/articles/{slug}", emptyHandler, WithName("Article")))
	require.NoError(t, b.AddRedirect(http.MethodGet, "/old", "/articles", WithRedirectCode(http.StatusFound)))
	require.NoError(t, b.AddRewrite(http.MethodGet, "/legacy", "/articles/welcome"))
	require.NoError(t, b.Handle(http.MethodGet, "/docs/guide", emptyHandler))
	require.NoError(t, b.Handle(http.MethodPost, "/articles", emptyHandler))
	rt, err := b.build(testRouterConfig())
	require.NoError(t, err)
	return rt
}

func TestRouterEndpoints(t *testing.T) {
	rt := metadataRouter(t)

	var got []string
	for ep := range rt.Endpoints() {
		got = append(got, ep.Method+" "+ep.Route+" "+ep.Type.String())
	}
	assert.Equal(t, []string{
		"GET /articles terminal",
		"GET /articles/{slug} terminal",
		"GET /docs/guide terminal",
		"GET /legacy rewrite",
		"GET /old redirect",
		"POST /articles terminal",
	}, got)

	endpoints := slices.Collect(rt.Endpoints())
	require.Len(t, endpoints, rt.Len())

	assert.Equal(t, Endpoint{
		Method:    http.MethodGet,
		Route:     "/articles",
		Name:      "Articles",
		ContentID: "c1",
		Type:      TerminalNode,
	}, endpoints[0])
	assert.Equal(t, "/articles/welcome", endpoints[3].Target)
	assert.Equal(t, "rewrite /articles/welcome", endpoints[3].Name)
	assert.Equal(t, "/articles", endpoints[4].Target)
	assert.Equal(t, "redirect /articles", endpoints[4].Name)
	assert.Contains(t, endpoints[2].Name, "waypoint")
}

func TestRouterForEachEndpoint(t *testing.T) {
	rt := metadataRouter(t)

	var got []string
	rt.ForEachEndpoint(func(ep Endpoint) bool {
		got = append(got, ep.Route)
		return len(got) < 2
	})
	assert.Equal(t, []string{"/articles", "/articles/{slug}"}, got)
}

func TestRouterMetadata(t *testing.T) {
	rt := metadataRouter(t)

	md := rt.Metadata(http.MethodGet)
	require.Len(t, md, 6)

	type entry struct {
		key   string
		typ   NodeType
		depth int
	}
	var got []entry
	for _, m := range md {
		assert.Equal(t, http.MethodGet, m.Method)
		got = append(got, entry{m.Key, m.Type, m.Depth})
	}
	assert.Equal(t, []entry{
		{"articles", TerminalNode, 1},
		{"{slug}", TerminalNode, 2},
		{"docs", IntermediateNode, 1},
		{"guide", TerminalNode, 2},
		{"legacy", TerminalRewriteNode, 1},
		{"old", TerminalRedirectNode, 1},
	}, got)

	assert.True(t, md[0].HasChildren)
	assert.False(t, md[1].HasChildren)
	assert.Equal(t, "Articles", md[0].DisplayName)
	assert.Equal(t, "c1", md[0].ContentID)
	assert.Equal(t, "https://cms.example.com/edit/c1", md[0].EditURL)
	assert.Equal(t, "/docs", md[2].Route)
	assert.Empty(t, md[2].DisplayName)
	assert.Equal(t, "/articles/welcome", md[4].Target)

	post := rt.Metadata(http.MethodPost)
	require.Len(t, post, 1)
	assert.Equal(t, "/articles", post[0].Route)

	assert.Empty(t, rt.Metadata(http.MethodPut))
	assert.Nil(t, rt.Metadata(http.MethodPatch))
}

func TestRouterDescribe(t *testing.T) {
	rt := metadataRouter(t)

	md, ok := rt.Describe(http.MethodGet, "/articles/{slug}")
	require.True(t, ok)
	assert.Equal(t, "Article", md.DisplayName)
	assert.Equal(t, "{slug}", md.Key)
	assert.Equal(t, 2, md.Depth)

	md, ok = rt.Describe(http.MethodGet, "/docs")
	require.True(t, ok)
	assert.Equal(t, IntermediateNode, md.Type)
	assert.True(t, md.HasChildren)

	_, ok = rt.Describe(http.MethodGet, "/articles/{id}")
	assert.False(t, ok)
	_, ok = rt.Describe(http.MethodGet, "/articles/welcome")
	assert.False(t, ok)
	_, ok = rt.Describe(http.MethodGet, "/missing")
	assert.False(t, ok)
	_, ok = rt.Describe(http.MethodPatch, "/articles")
	assert.False(t, ok)
	_, ok = rt.Describe(http.MethodGet, "/articles/{")
	assert.False(t, ok)
}

func TestNodeMetadataJSON(t *testing.T) {
	rt := metadataRouter(t)
	md, ok := rt.Describe(http.MethodGet, "/old")
	require.True(t, ok)

	buf, err := json.Marshal(md)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"method": "GET",
		"route": "/old",
		"key": "old",
		"displayName": "redirect /articles",
		"target": "/articles",
		"type": "redirect",
		"depth": 1,
		"hasChildren": false
	}`, string(buf))
}
