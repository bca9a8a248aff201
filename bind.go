// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package waypoint

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
)

// TokenBinder is implemented by params types that bind route tokens themselves. When *P implements
// TokenBinder, the route binder is a direct call to BindTokens.
type TokenBinder interface {
	BindTokens(tokens *Tokens, names TokenNames) error
}

var (
	noParamsType        = reflect.TypeFor[NoParams]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// fieldSetter binds one token into one struct field.
type fieldSetter struct {
	parse func(v reflect.Value, raw string) error
	name  string
	field int
	token int
}

// compileBinder resolves, once per route, how the tokens are bound into P. Struct fields are bound using the
// `token:"name"` tag.
func compileBinder[P any](ri routeInfo) (func(tokens *Tokens, params *P) error, error) {
	typ := reflect.TypeFor[P]()
	if typ == noParamsType {
		return nil, nil
	}

	if _, ok := any((*P)(nil)).(TokenBinder); ok {
		names := TokenNames(ri.names)
		return func(tokens *Tokens, params *P) error {
			return any(params).(TokenBinder).BindTokens(tokens, names)
		}, nil
	}

	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: params type %s must be a struct or implement TokenBinder", ErrInvalidBinder, typ)
	}

	setters := make([]fieldSetter, 0, len(ri.names))
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("token")
		if tag == "" || tag == "-" {
			continue
		}
		if !f.IsExported() {
			return nil, fmt.Errorf("%w: field %s.%s is not exported", ErrInvalidBinder, typ, f.Name)
		}
		idx := TokenNames(ri.names).Index(tag)
		if idx < 0 {
			return nil, fmt.Errorf("%w: field %s.%s binds unknown token {%s}", ErrInvalidBinder, typ, f.Name, tag)
		}
		parse, err := parserFor(f.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s.%s: %w", ErrInvalidBinder, typ, f.Name, err)
		}
		setters = append(setters, fieldSetter{parse: parse, name: tag, field: i, token: idx})
	}

	if len(setters) == 0 {
		return nil, nil
	}

	return func(tokens *Tokens, params *P) error {
		v := reflect.ValueOf(params).Elem()
		for i := range setters {
			s := &setters[i]
			if err := s.parse(v.Field(s.field), tokens.Get(s.token)); err != nil {
				return fmt.Errorf("invalid token {%s}: %w", s.name, err)
			}
		}
		return nil
	}, nil
}

func parserFor(typ reflect.Type) (func(v reflect.Value, raw string) error, error) {
	if reflect.PointerTo(typ).Implements(textUnmarshalerType) {
		return func(v reflect.Value, raw string) error {
			return v.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(raw))
		}, nil
	}

	switch typ.Kind() {
	case reflect.String:
		return func(v reflect.Value, raw string) error {
			v.SetString(raw)
			return nil
		}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		bits := typ.Bits()
		return func(v reflect.Value, raw string) error {
			i, err := strconv.ParseInt(raw, 10, bits)
			if err != nil {
				return err
			}
			v.SetInt(i)
			return nil
		}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		bits := typ.Bits()
		return func(v reflect.Value, raw string) error {
			u, err := strconv.ParseUint(raw, 10, bits)
			if err != nil {
				return err
			}
			v.SetUint(u)
			return nil
		}, nil
	case reflect.Float32, reflect.Float64:
		bits := typ.Bits()
		return func(v reflect.Value, raw string) error {
			f, err := strconv.ParseFloat(raw, bits)
			if err != nil {
				return err
			}
			v.SetFloat(f)
			return nil
		}, nil
	case reflect.Bool:
		return func(v reflect.Value, raw string) error {
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return err
			}
			v.SetBool(b)
			return nil
		}, nil
	default:
		return nil, fmt.Errorf("unsupported kind %s", typ.Kind())
	}
}
