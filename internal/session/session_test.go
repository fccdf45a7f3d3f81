package session

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/cosmos-link/webgen/internal/project"
)

func TestNewSessionIsBootstrapped(t *testing.T) {
	s := New("id")
	snap := s.Snapshot()

	if !reflect.DeepEqual(snap.Files, project.Scaffold()) {
		t.Errorf("Files = %+v; want scaffold", snap.Files)
	}
	if snap.Selected != "" || snap.LastResponse != "" || len(snap.Log) != 0 {
		t.Errorf("unexpected initial state: %+v", snap)
	}
}

func TestApplyResponse(t *testing.T) {
	s := New("id")
	response := "Here you go:\n```src/App.tsx\nconsole.log('hi')\n```\n"

	res := s.ApplyResponse(response)

	if got := res.Names(); !reflect.DeepEqual(got, []string{"src/App.tsx"}) {
		t.Errorf("Names() = %v", got)
	}
	app, _ := s.File("src/App.tsx")
	if app.Content != "console.log('hi')" {
		t.Errorf("content = %q", app.Content)
	}

	snap := s.Snapshot()
	if snap.LastResponse != response {
		t.Errorf("LastResponse = %q", snap.LastResponse)
	}
	want := []string{"$ AI Response:", response, "updated src/App.tsx"}
	if !reflect.DeepEqual(snap.Log, want) {
		t.Errorf("Log = %q; want %q", snap.Log, want)
	}
}

func TestEdit(t *testing.T) {
	s := New("id")
	before := s.Files()

	if s.Edit("nope.js", "x") {
		t.Error("Edit on unknown file should be a no-op")
	}
	if !reflect.DeepEqual(s.Files(), before) {
		t.Error("Edit on unknown file changed the tree")
	}

	if !s.Edit("index.html", "<p>edited</p>") {
		t.Fatal("Edit on existing file should apply")
	}
	e, _ := s.File("index.html")
	if e.Content != "<p>edited</p>" {
		t.Errorf("content = %q", e.Content)
	}
	if got := s.Files()[0].Name; got != "index.html" {
		t.Errorf("first entry = %q; ordering changed", got)
	}
}

func TestSelect(t *testing.T) {
	s := New("id")

	if s.Select("missing") {
		t.Error("Select on unknown file should fail")
	}
	if !s.Select("src/main.tsx") {
		t.Fatal("Select on existing file should succeed")
	}
	if got := s.Snapshot().Selected; got != "src/main.tsx" {
		t.Errorf("Selected = %q", got)
	}
}

func TestDeployAndNotify(t *testing.T) {
	s := New("id")
	before := s.Files()

	s.Notify("Error calling completion API")
	s.Deploy()

	log := s.Snapshot().Log
	if len(log) != 3 || log[0] != "Error calling completion API" || log[1] != "Deploying locally..." {
		t.Errorf("Log = %q", log)
	}
	if !reflect.DeepEqual(s.Files(), before) {
		t.Error("Deploy or Notify changed the tree")
	}
}

func TestConcurrentEventsAreSerialized(t *testing.T) {
	s := New("id")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.ApplyResponse("```gen.js\nx\n```")
		}()
		go func() {
			defer wg.Done()
			s.Edit("src/App.tsx", "edited")
		}()
	}
	wg.Wait()

	names := make(map[string]int)
	for _, e := range s.Files() {
		names[e.Name]++
	}
	if names["gen.js"] != 1 || len(s.Files()) != 5 {
		t.Errorf("unexpected tree after concurrent events: %v", names)
	}
}

func TestStore(t *testing.T) {
	st := NewStore()

	a := st.Create()
	b := st.Create()
	if a.ID == b.ID {
		t.Fatal("session ids should be unique")
	}
	if st.Len() != 2 {
		t.Errorf("Len() = %d; want 2", st.Len())
	}

	got, err := st.Get(a.ID)
	if err != nil || got != a {
		t.Errorf("Get(%q) = %v, %v", a.ID, got, err)
	}

	a.Edit("src/App.tsx", "changed")
	if e, _ := b.File("src/App.tsx"); e.Content == "changed" {
		t.Error("sessions share tree state")
	}

	if list := st.List(); len(list) != 2 {
		t.Errorf("List() returned %d sessions", len(list))
	}

	if err := st.Delete(a.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := st.Get(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete err = %v; want ErrNotFound", err)
	}
	if err := st.Delete(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete err = %v; want ErrNotFound", err)
	}
}
