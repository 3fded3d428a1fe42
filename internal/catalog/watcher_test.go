package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/testrack/internal/storage"
)

// watcherTestEnv sets up a workspace dir, storage, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return store.Root(), store, testDB(t)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatch(t *testing.T, db *DB, store storage.Provider, cb EventCallback) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, db, store, 50*time.Millisecond, quietLogger(), cb)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	var mu sync.Mutex
	var events []string
	startWatch(t, db, store, func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	writeFile(t, root, "TC-1.testcase.yaml", caseYAML)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs := checksumOf(t, db, "TC-1.testcase.yaml")
		return cs != ""
	}, "new file not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:TC-1.testcase.yaml" || e == "updated:TC-1.testcase.yaml" {
				return true
			}
		}
		return false
	}, "expected a callback for TC-1.testcase.yaml")
}

func TestWatcher_RevalidatesOnWrite(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	writeFile(t, root, "TC-1.testcase.yaml", caseYAML)
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}
	startWatch(t, db, store, nil)

	writeFile(t, root, "TC-1.testcase.yaml", "id: TC-1\ntitle: Broken\nstatus: nope\n")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		diags, _ := db.Diagnostics("TC-1.testcase.yaml")
		for _, d := range diags {
			if d.Severity == SeverityError && d.Location == "status" {
				return true
			}
		}
		return false
	}, "edited file was not re-validated")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	startWatch(t, db, store, nil)

	sub := filepath.Join(root, "login")
	_ = os.MkdirAll(sub, 0o755)
	time.Sleep(100 * time.Millisecond)

	writeFile(t, root, "login/index.yaml", suiteYAML)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs := checksumOf(t, db, "login/index.yaml")
		return cs != ""
	}, "file in new subdir not indexed by watcher")
}

func TestWatcher_IgnoresTrash(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	startWatch(t, db, store, nil)

	writeFile(t, root, ".trash/gone.testcase.yaml", caseYAML)
	writeFile(t, root, "marker.testcase.yaml", caseYAML)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs := checksumOf(t, db, "marker.testcase.yaml")
		return cs != ""
	}, "marker file not indexed")
	if cs := checksumOf(t, db, ".trash/gone.testcase.yaml"); cs != "" {
		t.Error("trash file should not be cataloged")
	}
}

func TestWatcher_DeleteRemovesFromCatalog(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	writeFile(t, root, "del.testcase.yaml", caseYAML)
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}
	if cs := checksumOf(t, db, "del.testcase.yaml"); cs == "" {
		t.Fatal("precondition: file should be cataloged")
	}

	startWatch(t, db, store, nil)
	_ = os.Remove(filepath.Join(root, "del.testcase.yaml"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs := checksumOf(t, db, "del.testcase.yaml")
		return cs == ""
	}, "deleted file still in catalog")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	writeFile(t, root, "old.testcase.yaml", caseYAML)
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}

	startWatch(t, db, store, nil)
	_ = os.Rename(filepath.Join(root, "old.testcase.yaml"), filepath.Join(root, "renamed.testcase.yaml"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS := checksumOf(t, db, "old.testcase.yaml")
		newCS := checksumOf(t, db, "renamed.testcase.yaml")
		return oldCS == "" && newCS != ""
	}, "rename reconciliation failed: old path should be removed and new path indexed")
}
