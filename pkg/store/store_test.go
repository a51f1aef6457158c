package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperr "github.com/matzehuels/stackflow/pkg/errors"
)

func newRecord(t *testing.T, hash string, created time.Time) *Record {
	t.Helper()
	rec, err := NewRecord(hash, []byte(`{"nodes":{},"edges":[]}`))
	if err != nil {
		t.Fatal(err)
	}
	rec.CreatedAt = created
	return rec
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fs,
	}
}

func TestStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer st.Close()
			rec := newRecord(t, "abc", time.Unix(100, 0).UTC())

			if err := st.Put(ctx, rec); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, err := st.Get(ctx, rec.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.ID != rec.ID || got.GraphHash != "abc" || string(got.Layout) != string(rec.Layout) {
				t.Errorf("Get() = %+v, want %+v", got, rec)
			}
			if !got.CreatedAt.Equal(rec.CreatedAt) {
				t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, rec.CreatedAt)
			}

			if err := st.Delete(ctx, rec.ID); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := st.Get(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get after Delete = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"00000000-0000-0000-0000-000000000000", "../escape"} {
				_, err := st.Get(ctx, id)
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("Get(%q) = %v, want ErrNotFound", id, err)
				}
				if !apperr.Is(err, apperr.ErrCodeNotFound) {
					t.Errorf("Get(%q) code = %s, want NOT_FOUND", id, apperr.GetCode(err))
				}
				if err := st.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
					t.Errorf("Delete(%q) = %v, want ErrNotFound", id, err)
				}
			}
		})
	}
}

func TestStore_PutRejectsBadID(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := st.Put(ctx, &Record{ID: "not-a-uuid"})
			if !apperr.Is(err, apperr.ErrCodeInvalidInput) {
				t.Errorf("Put() = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			base := time.Unix(1000, 0).UTC()
			var ids []string
			for i := range 3 {
				rec := newRecord(t, "h", base.Add(time.Duration(i)*time.Minute))
				if err := st.Put(ctx, rec); err != nil {
					t.Fatal(err)
				}
				ids = append(ids, rec.ID)
			}

			all, err := st.List(ctx, 0)
			if err != nil {
				t.Fatal(err)
			}
			if len(all) != 3 {
				t.Fatalf("List(0) returned %d records, want 3", len(all))
			}
			for i, want := range []string{ids[2], ids[1], ids[0]} {
				if all[i].ID != want {
					t.Errorf("List(0)[%d] = %s, want %s (newest first)", i, all[i].ID, want)
				}
			}

			two, err := st.List(ctx, 2)
			if err != nil {
				t.Fatal(err)
			}
			if len(two) != 2 || two[0].ID != ids[2] {
				t.Errorf("List(2) = %d records, first %s", len(two), two[0].ID)
			}
		})
	}
}

func TestMemoryStore_Copies(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	rec := newRecord(t, "before", time.Now())
	if err := st.Put(ctx, rec); err != nil {
		t.Fatal(err)
	}
	rec.GraphHash = "after"

	got, _ := st.Get(ctx, rec.ID)
	if got.GraphHash != "before" {
		t.Error("Put kept a reference to the caller's record")
	}
}

func TestFileStore_SkipsJunk(t *testing.T) {
	dir := t.TempDir()
	st, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "junk.json"), []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := st.Put(context.Background(), newRecord(t, "h", time.Now())); err != nil {
		t.Fatal(err)
	}
	recs, err := st.List(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Errorf("List() = %d records, want 1", len(recs))
	}
}

func TestNewFileStore_RequiresDir(t *testing.T) {
	if _, err := NewFileStore(""); err == nil {
		t.Error("NewFileStore(\"\") = nil error")
	}
}

func TestValidateID(t *testing.T) {
	rec := newRecord(t, "h", time.Now())
	if err := ValidateID(rec.ID); err != nil {
		t.Errorf("ValidateID(%q) = %v", rec.ID, err)
	}
	for _, id := range []string{"", "abc", "../x"} {
		if err := ValidateID(id); err == nil {
			t.Errorf("ValidateID(%q) = nil", id)
		}
	}
}

func TestMongoRecord(t *testing.T) {
	rec := newRecord(t, "h", time.Unix(5, 0).UTC())
	back := toMongo(rec).record()
	if back.ID != rec.ID || back.GraphHash != rec.GraphHash || string(back.Layout) != string(rec.Layout) || !back.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("round trip = %+v, want %+v", back, rec)
	}
}

func TestNewMongoStore_BadURI(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := NewMongoStore(ctx, "not-a-mongo-uri", "", ""); err == nil {
		t.Error("NewMongoStore(bad uri) = nil error")
	}
}
