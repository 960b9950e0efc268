package store

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2 (init + accounts)", result.Version)
	}
}

func TestMigrateFromEmpty(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "fresh.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	if v, err := db.SchemaVersion(); err != nil || v != 0 {
		t.Fatalf("SchemaVersion() = %d, %v, want 0", v, err)
	}
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if !result.Changed || result.From != 0 || result.Version != 2 {
		t.Errorf("Migrate() = %+v, want 0 -> 2", result)
	}
}

func TestDirtySchemaRejected(t *testing.T) {
	db := testDB(t)
	if _, err := db.Exec(`UPDATE schema_migrations SET dirty = 1`); err != nil {
		t.Fatal(err)
	}

	if _, err := db.Migrate(); !errors.Is(err, ErrDirtySchema) {
		t.Errorf("Migrate() error = %v, want ErrDirtySchema", err)
	}
	if _, err := db.SchemaVersion(); !errors.Is(err, ErrDirtySchema) {
		t.Errorf("SchemaVersion() error = %v, want ErrDirtySchema", err)
	}
}

func TestConcurrentPatchesAllApply(t *testing.T) {
	db := testDB(t)
	if err := db.PutDocument("counters", "c", []byte(`{"n":0}`)); err != nil {
		t.Fatal(err)
	}

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := db.PatchDocument("counters", "c", func(old []byte) ([]byte, error) {
				var v struct{ N int }
				if err := json.Unmarshal(old, &v); err != nil {
					return nil, err
				}
				v.N++
				return json.Marshal(map[string]int{"n": v.N})
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("PatchDocument() error = %v", err)
		}
	}

	d, err := db.GetDocument("counters", "c")
	if err != nil {
		t.Fatal(err)
	}
	if string(d.Data) != `{"n":8}` {
		t.Errorf("data = %s, want n=8", d.Data)
	}
}

func TestDocumentPutAndGet(t *testing.T) {
	db := testDB(t)

	if err := db.PutDocument("users", "u1", []byte(`{"name":"A"}`)); err != nil {
		t.Fatal(err)
	}
	if err := db.PutDocument("users", "u1", []byte(`{"name":"B"}`)); err != nil {
		t.Fatal(err)
	}

	d, err := db.GetDocument("users", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if d == nil || string(d.Data) != `{"name":"B"}` {
		t.Errorf("got %v, want replaced data", d)
	}

	d, err = db.GetDocument("users", "missing")
	if err != nil {
		t.Fatal(err)
	}
	if d != nil {
		t.Error("expected nil for missing document")
	}
}

func TestListDocumentsScopedToCollection(t *testing.T) {
	db := testDB(t)

	for _, id := range []string{"b", "a", "c"} {
		if err := db.PutDocument("chats/c1/messages", id, []byte(`{}`)); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.PutDocument("chats/c2/messages", "z", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}

	docs, err := db.ListDocuments("chats/c1/messages")
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 3 {
		t.Fatalf("got %d docs, want 3", len(docs))
	}
	for i, want := range []string{"a", "b", "c"} {
		if docs[i].ID != want {
			t.Errorf("docs[%d].ID = %q, want %q", i, docs[i].ID, want)
		}
	}
}

func TestPatchDocument(t *testing.T) {
	db := testDB(t)

	ok, err := db.PatchDocument("users", "u1", func(old []byte) ([]byte, error) {
		t.Fatal("merge called for missing document")
		return nil, nil
	})
	if err != nil || ok {
		t.Fatalf("patch missing = (%v, %v), want (false, nil)", ok, err)
	}

	if err := db.PutDocument("users", "u1", []byte(`{"name":"A"}`)); err != nil {
		t.Fatal(err)
	}
	ok, err = db.PatchDocument("users", "u1", func(old []byte) ([]byte, error) {
		if string(old) != `{"name":"A"}` {
			t.Errorf("old = %s", old)
		}
		return []byte(`{"name":"A2"}`), nil
	})
	if err != nil || !ok {
		t.Fatalf("patch = (%v, %v), want (true, nil)", ok, err)
	}

	d, _ := db.GetDocument("users", "u1")
	if string(d.Data) != `{"name":"A2"}` {
		t.Errorf("data = %s", d.Data)
	}
}

func TestAccounts(t *testing.T) {
	db := testDB(t)

	if err := db.CreateAccount(&Account{UID: "u1", Email: "a@example.com", PasswordHash: "h"}); err != nil {
		t.Fatal(err)
	}
	err := db.CreateAccount(&Account{UID: "u2", Email: "A@example.com", PasswordHash: "h"})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate email error = %v, want ErrDuplicate", err)
	}

	a, err := db.AccountByEmail("a@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if a == nil || a.UID != "u1" {
		t.Errorf("got %v, want u1", a)
	}

	a, err = db.AccountByUID("nobody")
	if err != nil {
		t.Fatal(err)
	}
	if a != nil {
		t.Error("expected nil for unknown uid")
	}
}
