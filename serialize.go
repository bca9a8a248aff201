// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package waypoint

import (
	"fmt"
	"io"
	"iter"
	"net/http"
	"reflect"
	"time"

	"github.com/goccy/go-json"
	"github.com/tigerwill90/waypoint/internal/bytesconv"
)

// Written is the output type of handlers that write the response themselves through the [Context].
type Written struct{}

// NoContent is the output type of handlers replying with http.StatusNoContent.
type NoContent struct{}

// File is a raw file content served with http.ServeContent, which handles Range and conditional requests.
type File struct {
	ModTime     time.Time
	Content     io.ReadSeeker
	Name        string
	ContentType string
}

// Entity is implemented by content types managed by the persistence layer. Handlers must not return a slice or
// an array of entities: use a [Stream] instead, so the collection is serialized without being loaded at once.
type Entity interface {
	EntityID() string
}

// Stream is a lazily evaluated sequence serialized as a JSON array. Each element is encoded and flushed to the
// client as soon as it is produced.
type Stream[T any] struct {
	Seq iter.Seq[T]
}

// StreamOf returns a Stream over seq.
func StreamOf[T any](seq iter.Seq[T]) Stream[T] {
	return Stream[T]{Seq: seq}
}

// streamer is implemented by every Stream instantiation.
type streamer interface {
	writeStream(c *Context) error
}

func (s Stream[T]) writeStream(c *Context) error {
	c.w.Header().Set(HeaderContentType, MIMEApplicationJSON)
	c.w.WriteHeader(http.StatusOK)

	flusher, _ := c.w.(http.Flusher)
	if _, err := c.w.Write([]byte{'['}); err != nil {
		return err
	}
	if s.Seq != nil {
		first := true
		for v := range s.Seq {
			buf, err := json.Marshal(v)
			if err != nil {
				// The status line is gone, only the connection can signal the failure.
				panic(http.ErrAbortHandler)
			}
			if !first {
				if _, err = c.w.Write([]byte{','}); err != nil {
					return err
				}
			}
			first = false
			if _, err = c.w.Write(buf); err != nil {
				return err
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
	_, err := c.w.Write([]byte{']'})
	return err
}

var (
	writtenType   = reflect.TypeFor[Written]()
	noContentType = reflect.TypeFor[NoContent]()
	fileType      = reflect.TypeFor[File]()
	filePtrType   = reflect.TypeFor[*File]()
	streamerType  = reflect.TypeFor[streamer]()
	entityType    = reflect.TypeFor[Entity]()
	stringType    = reflect.TypeFor[string]()
	bytesType     = reflect.TypeFor[[]byte]()
)

// compileSerializer selects, once per route, how the handler output O is written to the client.
func compileSerializer[O any]() (func(c *Context, out O) error, error) {
	typ := reflect.TypeFor[O]()

	switch typ {
	case writtenType:
		return func(c *Context, out O) error {
			return nil
		}, nil
	case noContentType:
		return func(c *Context, out O) error {
			c.w.WriteHeader(http.StatusNoContent)
			return nil
		}, nil
	case fileType:
		return func(c *Context, out O) error {
			f := any(out).(File)
			return serveFile(c, &f)
		}, nil
	case filePtrType:
		return func(c *Context, out O) error {
			return serveFile(c, any(out).(*File))
		}, nil
	case stringType:
		return func(c *Context, out O) error {
			return c.Blob(http.StatusOK, MIMETextPlainCharsetUTF8, bytesconv.Bytes(any(out).(string)))
		}, nil
	case bytesType:
		return func(c *Context, out O) error {
			return c.Blob(http.StatusOK, MIMEOctetStream, any(out).([]byte))
		}, nil
	}

	if typ.Kind() != reflect.Interface && typ.Implements(streamerType) {
		// A nil *Stream has no sequence to drain.
		if typ.Kind() == reflect.Pointer {
			return nil, fmt.Errorf("%w: handler returns %s, return %s by value", ErrUnsupportedOutput, typ, typ.Elem())
		}
		return func(c *Context, out O) error {
			return any(out).(streamer).writeStream(c)
		}, nil
	}

	if err := checkOutput(typ); err != nil {
		return nil, err
	}

	return func(c *Context, out O) error {
		return c.JSON(http.StatusOK, out)
	}, nil
}

func checkOutput(typ reflect.Type) error {
	switch typ.Kind() {
	case reflect.Chan:
		return fmt.Errorf("%w: handler returns %s", ErrAsyncOutput, typ)
	case reflect.Func, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return fmt.Errorf("%w: handler returns %s", ErrUnsupportedOutput, typ)
	case reflect.Slice, reflect.Array:
		if isEntity(typ.Elem()) {
			return fmt.Errorf("%w: handler returns %s", ErrEntityCollection, typ)
		}
	case reflect.Pointer:
		return checkOutput(typ.Elem())
	}
	return nil
}

func isEntity(typ reflect.Type) bool {
	if typ.Implements(entityType) {
		return true
	}
	return typ.Kind() != reflect.Pointer && typ.Kind() != reflect.Interface && reflect.PointerTo(typ).Implements(entityType)
}

func serveFile(c *Context, f *File) error {
	if f == nil || f.Content == nil {
		return NewHTTPError(http.StatusNotFound, nil)
	}
	if closer, ok := f.Content.(io.Closer); ok {
		defer closer.Close()
	}
	if f.ContentType != "" {
		c.w.Header().Set(HeaderContentType, f.ContentType)
	}
	http.ServeContent(c.w, c.req, f.Name, f.ModTime, f.Content)
	return nil
}
