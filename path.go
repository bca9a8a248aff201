// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package waypoint

import (
	"fmt"
	"strings"
)

const (
	slashDelim   byte = '/'
	bracketDelim byte = '{'
	closingDelim byte = '}'
)

// segment is a parsed route pattern segment. For a capture segment, text holds the token name.
type segment struct {
	text    string
	capture bool
}

// NormalizePath strips a single leading and a single trailing slash. Consecutive slashes are preserved, each
// empty segment being matched literally.
func NormalizePath(path string) string {
	if len(path) > 0 && path[0] == slashDelim {
		path = path[1:]
	}
	if len(path) > 0 && path[len(path)-1] == slashDelim {
		path = path[:len(path)-1]
	}
	return path
}

// parsePattern parses and validates the route pattern in a single pass. It returns the segments along with the
// number of capture tokens.
func parsePattern(pattern string) ([]segment, int, error) {
	if pattern == "" || pattern[0] != slashDelim {
		return nil, 0, newInvalidRouteErr(pattern, "missing leading '/'")
	}

	path := NormalizePath(pattern)
	segments := make([]segment, 0, strings.Count(path, "/")+1)
	tokens := 0

	for {
		i := strings.IndexByte(path, slashDelim)
		var raw string
		if i < 0 {
			raw = path
		} else {
			raw = path[:i]
		}

		seg, err := parseSegment(pattern, raw)
		if err != nil {
			return nil, 0, err
		}
		if seg.capture {
			tokens++
			if tokens > MaxTokenCount {
				return nil, 0, fmt.Errorf("%w: %s: %d tokens declared, at most %d allowed", ErrTooManyTokens, pattern, tokens, MaxTokenCount)
			}
		}
		segments = append(segments, seg)

		if i < 0 {
			break
		}
		path = path[i+1:]
	}

	return segments, tokens, nil
}

func parseSegment(pattern, raw string) (segment, error) {
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		// reject any ASCII control character.
		if c < ' ' || c == 0x7f {
			return segment{}, newInvalidRouteErr(pattern, "illegal control character")
		}
	}

	open := strings.IndexByte(raw, bracketDelim)
	closing := strings.IndexByte(raw, closingDelim)
	if open < 0 && closing < 0 {
		return segment{text: raw}, nil
	}

	if open != 0 || closing != len(raw)-1 {
		return segment{}, newInvalidRouteErr(pattern, fmt.Sprintf("token '%s' must span the whole segment", raw))
	}

	name := raw[1 : len(raw)-1]
	if name == "" {
		return segment{}, newInvalidRouteErr(pattern, "missing token name between '{}'")
	}
	if strings.ContainsAny(name, "{}") {
		return segment{}, newInvalidRouteErr(pattern, fmt.Sprintf("illegal character in token '%s'", raw))
	}

	return segment{text: name, capture: true}, nil
}

// parseTarget parses a concrete path, as used by rewrite targets. Tokens are not allowed.
func parseTarget(path string) ([]string, error) {
	segments, n, err := parsePattern(path)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, newInvalidRouteErr(path, "rewrite target must be a concrete path")
	}
	parts := make([]string, len(segments))
	for i := range segments {
		parts[i] = segments[i].text
	}
	return parts, nil
}

// methodIndex returns the index of the tree serving method, or -1 if the method is not routed.
func methodIndex(method string) int {
	switch method {
	case "GET":
		return 0
	case "POST":
		return 1
	case "PUT":
		return 2
	case "DELETE":
		return 3
	default:
		return -1
	}
}
