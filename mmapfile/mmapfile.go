// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Package mmapfile memory-maps a JSON index artifact read-only and hands
// back the mapped bytes as a plain []byte, so jsonidx.New never has to
// know mmap exists (spec.md §1: "an index artifact is a []byte; how it
// got there is the caller's concern"). It deliberately lives outside the
// wire and jsonidx packages.
package mmapfile

import (
	"fmt"
	"reflect"
	"unsafe"

	"golang.org/x/exp/mmap"
)

// File is a memory-mapped, read-only view of a file on disk. The slice
// returned by Bytes aliases the mapping directly: it is only valid until
// Close, after which any retained slice into it is a use-after-free.
type File struct {
	r    *mmap.ReaderAt
	data []byte
}

// Open memory-maps path read-only.
func Open(path string) (*File, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}

	size := r.Len()
	if size <= 0 {
		_ = r.Close()
		return nil, fmt.Errorf("mmapfile: %s is empty", path)
	}

	data, err := readerAtBytes(r)
	if err != nil {
		data, err = copyViaReadAt(r, size)
		if err != nil {
			_ = r.Close()
			return nil, err
		}
	}
	if len(data) != size {
		_ = r.Close()
		return nil, fmt.Errorf("mmapfile: unexpected mapping size for %s: got %d, want %d", path, len(data), size)
	}

	return &File{r: r, data: data}, nil
}

// copyViaReadAt is readerAtBytes's fallback: if a future
// golang.org/x/exp/mmap release renames or drops the unexported `data`
// field, this reads the whole mapping through the public io.ReaderAt
// surface instead of failing outright. It costs one full copy of the
// artifact, paid once at Open.
func copyViaReadAt(r *mmap.ReaderAt, size int) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("mmapfile: fallback ReadAt failed: %w", err)
	}
	return buf, nil
}

// Bytes returns the mapped file contents. Valid until Close.
func (f *File) Bytes() []byte {
	if f == nil {
		return nil
	}
	return f.data
}

// Close unmaps the file. Safe to call on a nil *File.
func (f *File) Close() error {
	if f == nil {
		return nil
	}
	f.data = nil
	if f.r != nil {
		err := f.r.Close()
		f.r = nil
		return err
	}
	return nil
}

// readerAtBytes reaches past golang.org/x/exp/mmap.ReaderAt's
// io.ReaderAt-only surface to its unexported `data []byte` field, via
// reflection and unsafe. golang.org/x/exp/mmap offers no exported way to
// get the mapped region as a slice, and jsonidx needs zero-copy access
// to decode the wire format in place.
func readerAtBytes(r *mmap.ReaderAt) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("mmapfile: nil reader")
	}

	v := reflect.ValueOf(r)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return nil, fmt.Errorf("mmapfile: unexpected reader kind")
	}
	e := v.Elem()
	if e.Kind() != reflect.Struct {
		return nil, fmt.Errorf("mmapfile: unexpected reader layout")
	}
	field := e.FieldByName("data")
	if !field.IsValid() || field.Kind() != reflect.Slice || field.Type().Elem().Kind() != reflect.Uint8 {
		return nil, fmt.Errorf("mmapfile: unsupported golang.org/x/exp/mmap.ReaderAt version (missing data field)")
	}
	if !field.CanAddr() {
		return nil, fmt.Errorf("mmapfile: cannot address reader data")
	}
	return *(*[]byte)(unsafe.Pointer(field.UnsafeAddr())), nil
}
