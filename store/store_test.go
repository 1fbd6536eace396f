package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	dir, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer os.RemoveAll(dir)

	s, err := Open(filepath.Join(dir, "states.sqlite"))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer s.Close()

	bell := [][]complex64{
		{0.5, 0, 0, 0.5},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0.5, 0, 0, 0.5},
	}
	damped := [][]complex64{
		{0.75, 0.25i},
		{-0.25i, 0.25},
	}
	if err := s.Put("bell", bell); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := s.Put("damped", damped); err != nil {
		t.Fatalf("%+v", err)
	}

	for _, test := range []struct {
		run  string
		want [][]complex64
	}{
		{run: "bell", want: bell},
		{run: "damped", want: damped},
	} {
		got, err := s.Get(test.run)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		if len(got) != len(test.want) {
			t.Fatalf("%d, expected %d", len(got), len(test.want))
		}
		for i, row := range test.want {
			for j, w := range row {
				if got[i][j] != w {
					t.Fatalf("%s (%d, %d): %v, expected %v", test.run, i, j, got[i][j], w)
				}
			}
		}
	}

	runs, err := s.Runs()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(runs) != 2 || runs[0] != "bell" || runs[1] != "damped" {
		t.Fatalf("%v, expected [bell damped]", runs)
	}
}

func TestPutReplaces(t *testing.T) {
	t.Parallel()
	dir, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer os.RemoveAll(dir)

	s, err := Open(filepath.Join(dir, "states.sqlite"))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer s.Close()

	if err := s.Put("run", [][]complex64{{1, 0}, {0, 0}}); err != nil {
		t.Fatalf("%+v", err)
	}
	// The zero at (0, 0) must shadow the previous nonzero entry.
	if err := s.Put("run", [][]complex64{{0, 0}, {0, 1}}); err != nil {
		t.Fatalf("%+v", err)
	}

	got, err := s.Get("run")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	want := [][]complex64{{0, 0}, {0, 1}}
	for i, row := range want {
		for j, w := range row {
			if got[i][j] != w {
				t.Fatalf("(%d, %d): %v, expected %v", i, j, got[i][j], w)
			}
		}
	}
}

func TestGetMissing(t *testing.T) {
	t.Parallel()
	dir, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer os.RemoveAll(dir)

	s, err := Open(filepath.Join(dir, "states.sqlite"))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer s.Close()

	if _, err := s.Get("nonexistent"); err == nil {
		t.Fatalf("expected error")
	}
}
