package services

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapPreservesMarker(t *testing.T) {
	base := fmt.Errorf("connection reset")
	err := Wrap(ErrStatus, "catalog", "download", "dataset xubh-q36u", base)

	if !errors.Is(err, ErrStatus) {
		t.Fatal("wrapped error should match its marker")
	}
	if !errors.Is(err, base) {
		t.Fatal("wrapped error should match the underlying cause")
	}
	if errors.Is(err, ErrRemote) {
		t.Fatal("wrapped error should not match a different marker")
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := Wrap(ErrParse, "tabular", "decode", "row 7", nil)
	if !errors.Is(err, ErrParse) {
		t.Fatal("marker lost")
	}
	want := "malformed dataset: tabular: decode: row 7"
	if err.Error() != want {
		t.Errorf("message mismatch: got %q, want %q", err.Error(), want)
	}
}

func TestWrapNilMarker(t *testing.T) {
	base := errors.New("boom")
	err := Wrap(nil, "syncer", "", "", base)
	if !errors.Is(err, base) {
		t.Fatal("cause lost when marker is nil")
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{Wrap(ErrRemote, "catalog", "list", "", errors.New("500")), "remote"},
		{Wrap(ErrStatus, "catalog", "download", "", nil), "status"},
		{Wrap(ErrParse, "tabular", "decode", "", nil), "parse"},
		{Wrap(ErrStorage, "syncmeta", "load", "", nil), "storage"},
		{errors.New("unclassified"), "other"},
	}
	for _, tc := range cases {
		if got := Kind(tc.err); got != tc.want {
			t.Errorf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
