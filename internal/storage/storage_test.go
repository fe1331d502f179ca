package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

func openAll(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	file, err := NewFile(filepath.Join(dir, "kv"))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	sqlite, err := NewSQLite(filepath.Join(dir, "docent.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	stores := map[string]Store{
		"memory": NewMemory(),
		"file":   file,
		"sqlite": sqlite,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStores_Contract(t *testing.T) {
	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := s.Get("favourites"); err != nil || ok {
				t.Fatalf("Get missing = ok %v err %v, want absent", ok, err)
			}

			if err := s.Set("favourites", []byte(`[1]`)); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := s.Set("favourites", []byte(`[1,2]`)); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}
			got, ok, err := s.Get("favourites")
			if err != nil || !ok || string(got) != `[1,2]` {
				t.Fatalf("Get = %q ok %v err %v, want [1,2]", got, ok, err)
			}

			if err := s.Remove("favourites"); err != nil {
				t.Fatalf("Remove: %v", err)
			}
			if _, ok, _ := s.Get("favourites"); ok {
				t.Fatal("key still present after Remove")
			}
			if err := s.Remove("favourites"); err != nil {
				t.Fatalf("Remove missing key: %v", err)
			}
			if err := s.Set("  ", []byte("x")); err == nil {
				t.Fatal("Set with blank key succeeded, want error")
			}
		})
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "docent.db")
	s, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	if err := s.Set("pending_operations", []byte(`[{"kind":"AddFavourite"}]`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, ok, err := reopened.Get("pending_operations")
	if err != nil || !ok || string(got) != `[{"kind":"AddFavourite"}]` {
		t.Fatalf("Get after reopen = %q ok %v err %v", got, ok, err)
	}
}

func TestFile_KeysAreEscaped(t *testing.T) {
	s, err := NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if err := s.Set("../escape", []byte("x")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := s.Get("../escape")
	if err != nil || !ok || string(got) != "x" {
		t.Fatalf("Get = %q ok %v err %v", got, ok, err)
	}
}

func TestMemory_ReturnsCopies(t *testing.T) {
	m := NewMemory()
	val := []byte("abc")
	_ = m.Set("k", val)
	val[0] = 'z'
	got, _, _ := m.Get("k")
	if string(got) != "abc" {
		t.Fatalf("Get = %q, want abc", got)
	}
	got[0] = 'y'
	again, _, _ := m.Get("k")
	if string(again) != "abc" {
		t.Fatalf("stored value mutated through returned slice: %q", again)
	}
}

func TestParseDriver(t *testing.T) {
	tests := []struct {
		in      string
		want    Driver
		wantErr bool
	}{
		{"", DriverSQLite, false},
		{" SQLite ", DriverSQLite, false},
		{"file", DriverFile, false},
		{"memory", DriverMemory, false},
		{"redis", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDriver(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseDriver(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if tt.wantErr && !errors.Is(err, ErrUnknownDriver) {
			t.Fatalf("ParseDriver(%q) error = %v, want ErrUnknownDriver", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseDriver(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOpen_Drivers(t *testing.T) {
	dir := t.TempDir()
	for _, d := range []Driver{DriverMemory, DriverFile, DriverSQLite} {
		s, err := Open(d, dir)
		if err != nil {
			t.Fatalf("Open(%s): %v", d, err)
		}
		_ = s.Close()
	}
	if _, err := Open("bogus", dir); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("Open(bogus) error = %v, want ErrUnknownDriver", err)
	}
}
