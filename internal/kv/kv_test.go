package kv

import (
	"bytes"
	"context"
	"testing"
)

func TestMapStoreMissingKey(t *testing.T) {
	s := NewMapStore()
	v, err := s.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != nil {
		t.Errorf("got %v for missing key, want nil", v)
	}
}

func TestMapStorePutGet(t *testing.T) {
	s := NewMapStore()
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, "k", []byte("v2")); err != nil {
		t.Fatalf("put: %v", err)
	}

	v, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(v, []byte("v2")) {
		t.Errorf("got %q, want last write %q", v, "v2")
	}
	if s.Puts() != 2 {
		t.Errorf("got %d puts, want 2", s.Puts())
	}
}

func TestMapStoreCopiesValues(t *testing.T) {
	s := NewMapStore()
	ctx := context.Background()

	src := []byte("original")
	s.Put(ctx, "k", src)
	src[0] = 'X'

	v, _ := s.Get(ctx, "k")
	if !bytes.Equal(v, []byte("original")) {
		t.Errorf("stored value aliased caller buffer: %q", v)
	}
	v[0] = 'Y'
	again, _ := s.Get(ctx, "k")
	if !bytes.Equal(again, []byte("original")) {
		t.Errorf("returned value aliased stored buffer: %q", again)
	}
}
