// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package waypoint

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// MaxBodySize is the maximum number of bytes read from a request payload.
const MaxBodySize = 4 << 20

var noBodyType = reflect.TypeFor[NoBody]()

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func bodyValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// compileLoader resolves, once per route, how the request payload is decoded into B. Only POST and PUT routes
// may declare a body. Struct bodies are validated using the `validate` tag.
func compileLoader[B any](ri routeInfo) (func(r *http.Request, body *B) error, error) {
	typ := reflect.TypeFor[B]()
	if typ == noBodyType {
		return nil, nil
	}

	if ri.method != http.MethodPost && ri.method != http.MethodPut {
		return nil, fmt.Errorf("%w: %s route declares body type %s", ErrBodyNotAllowed, ri.method, typ)
	}

	check := typ.Kind() == reflect.Struct || (typ.Kind() == reflect.Pointer && typ.Elem().Kind() == reflect.Struct)

	return func(r *http.Request, body *B) error {
		if ct := r.Header.Get(HeaderContentType); ct != "" {
			mediaType, _, err := mime.ParseMediaType(ct)
			if err != nil || mediaType != MIMEApplicationJSON {
				return NewHTTPError(http.StatusUnsupportedMediaType, fmt.Errorf("unsupported content type %q", ct))
			}
		}

		dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodySize))
		if err := dec.Decode(body); err != nil {
			if errors.Is(err, io.EOF) {
				return NewHTTPError(http.StatusBadRequest, errors.New("empty request body"))
			}
			return NewHTTPError(http.StatusBadRequest, err)
		}

		if check {
			var target any = body
			if typ.Kind() == reflect.Pointer {
				target = *body
			}
			if err := bodyValidator().Struct(target); err != nil {
				var invalid *validator.InvalidValidationError
				if errors.As(err, &invalid) {
					return nil
				}
				return NewHTTPError(http.StatusBadRequest, err)
			}
		}
		return nil
	}, nil
}
