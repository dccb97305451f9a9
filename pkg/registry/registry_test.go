package registry

import (
	"testing"
	"time"

	"github.com/spf13/afero"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/srv/ftp", 0755); err != nil {
		t.Fatal(err)
	}
	if err := fs.MkdirAll("/srv/ftp/incoming", 0755); err != nil {
		t.Fatal(err)
	}
	return NewRegistryWithFs(fs)
}

func TestAddShare(t *testing.T) {
	reg := newTestRegistry(t)

	err := reg.AddShare(&ShareConfig{Name: "pub", Path: "/srv/ftp", ReadOnly: true})
	if err != nil {
		t.Fatalf("AddShare failed: %v", err)
	}

	share, err := reg.GetShare("pub")
	if err != nil {
		t.Fatalf("GetShare failed: %v", err)
	}
	if !share.ReadOnly {
		t.Error("Expected share to be read-only")
	}
	if reg.CountShares() != 1 {
		t.Errorf("Expected 1 share, got %d", reg.CountShares())
	}
}

func TestAddShare_Duplicate(t *testing.T) {
	reg := newTestRegistry(t)

	if err := reg.AddShare(&ShareConfig{Name: "pub", Path: "/srv/ftp"}); err != nil {
		t.Fatalf("AddShare failed: %v", err)
	}
	if err := reg.AddShare(&ShareConfig{Name: "pub", Path: "/srv/ftp/incoming"}); err == nil {
		t.Fatal("Expected error registering duplicate share name")
	}
}

func TestAddShare_MissingDirectory(t *testing.T) {
	reg := newTestRegistry(t)

	if err := reg.AddShare(&ShareConfig{Name: "ghost", Path: "/does/not/exist"}); err == nil {
		t.Fatal("Expected error for missing backing directory")
	}
}

func TestAddShare_EmptyName(t *testing.T) {
	reg := newTestRegistry(t)

	if err := reg.AddShare(&ShareConfig{Path: "/srv/ftp"}); err == nil {
		t.Fatal("Expected error for empty share name")
	}
}

func TestGetShare_NotFound(t *testing.T) {
	reg := newTestRegistry(t)

	if _, err := reg.GetShare("nope"); err == nil {
		t.Fatal("Expected error for unknown share")
	}
}

func TestListShares_Sorted(t *testing.T) {
	reg := newTestRegistry(t)

	if err := reg.AddShare(&ShareConfig{Name: "zeta", Path: "/srv/ftp"}); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddShare(&ShareConfig{Name: "alpha", Path: "/srv/ftp/incoming"}); err != nil {
		t.Fatal(err)
	}

	names := reg.ListShares()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("Expected sorted [alpha zeta], got %v", names)
	}
}

func TestShareViewsAreIndependent(t *testing.T) {
	reg := newTestRegistry(t)

	if err := reg.AddShare(&ShareConfig{Name: "pub", Path: "/srv/ftp"}); err != nil {
		t.Fatal(err)
	}
	share, err := reg.GetShare("pub")
	if err != nil {
		t.Fatal(err)
	}

	v1 := share.NewView()
	v2 := share.NewView()

	h, err := v1.Resolve("incoming")
	if err != nil {
		t.Fatal(err)
	}
	if !h.IsDir() {
		t.Fatal("Expected incoming to resolve inside the share")
	}

	// Changing directory in one view must not move the other.
	type dirChanger interface{ ChangeDir(p string) error }
	if err := v1.(dirChanger).ChangeDir("incoming"); err != nil {
		t.Fatal(err)
	}
	if v2.WorkingDir() != "/" {
		t.Errorf("Expected second view to stay at /, got %s", v2.WorkingDir())
	}
}

func TestSessionTracking(t *testing.T) {
	reg := newTestRegistry(t)

	err := reg.RegisterSession(&SessionInfo{
		ID:          "s-1",
		ClientAddr:  "203.0.113.9:51000",
		User:        "anna",
		Share:       "pub",
		ConnectedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("RegisterSession failed: %v", err)
	}
	if reg.CountSessions() != 1 {
		t.Errorf("Expected 1 session, got %d", reg.CountSessions())
	}

	if err := reg.RegisterSession(&SessionInfo{ID: "s-1"}); err == nil {
		t.Fatal("Expected error registering duplicate session ID")
	}

	reg.UnregisterSession("s-1")
	if reg.CountSessions() != 0 {
		t.Errorf("Expected 0 sessions after unregister, got %d", reg.CountSessions())
	}

	// Unknown IDs are ignored.
	reg.UnregisterSession("never-registered")
}

func TestRegisterSession_RequiresID(t *testing.T) {
	reg := newTestRegistry(t)

	if err := reg.RegisterSession(&SessionInfo{ClientAddr: "203.0.113.9"}); err == nil {
		t.Fatal("Expected error for session without ID")
	}
}
