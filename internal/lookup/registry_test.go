package lookup

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStaticSource_FindByField(t *testing.T) {
	src := NewStaticSource([]map[string]any{
		{"username": "alice", "email": "alice@example.com", "id": 1},
		{"username": "bob", "email": "bob@example.com", "id": 2},
	})

	entity, found := src.FindByField("username", "bob")
	if !found {
		t.Fatal("expected a hit for bob")
	}
	if entity["email"] != "bob@example.com" {
		t.Errorf("email = %v", entity["email"])
	}

	// Non-string values compare by their string form
	if _, found := src.FindByField("id", "2"); !found {
		t.Error("numeric field did not match its string form")
	}

	if _, found := src.FindByField("username", "carol"); found {
		t.Error("unexpected hit for carol")
	}
	if _, found := src.FindByField("missing", "x"); found {
		t.Error("unexpected hit for missing field")
	}
}

func TestRegistry_Dispatch(t *testing.T) {
	reg := NewRegistry()
	reg.Register("user", NewStaticSource([]map[string]any{
		{"username": "alice"},
	}))

	if _, found := reg.FindByField("user", "username", "alice"); !found {
		t.Error("registered model did not resolve")
	}
	if _, found := reg.FindByField("ghost", "username", "alice"); found {
		t.Error("unregistered model resolved")
	}
}

func TestRegistry_BindingsDeterministicOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Bind("username", "user")
	reg.Bind("collection_name", "collection")
	reg.Bind("account_id", "account")

	bindings := reg.Bindings()
	if len(bindings) != 3 {
		t.Fatalf("got %d bindings", len(bindings))
	}

	// Sorted by field name
	want := []string{"account_id", "collection_name", "username"}
	for i, b := range bindings {
		if b.Field != want[i] {
			t.Errorf("binding %d = %s, want %s", i, b.Field, want[i])
		}
	}
}

func TestLoadEntitiesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entities.yaml")

	content := `user:
  - username: alice
    email: alice@example.com
  - username: bob
    email: bob@example.com
collection:
  - collection_name: smoke
    size: 12
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry()
	if err := LoadEntitiesFile(path, reg); err != nil {
		t.Fatalf("LoadEntitiesFile failed: %v", err)
	}

	entity, found := reg.FindByField("user", "username", "alice")
	if !found {
		t.Fatal("user model not loaded")
	}
	if entity["email"] != "alice@example.com" {
		t.Errorf("email = %v", entity["email"])
	}

	entity, found = reg.FindByField("collection", "collection_name", "smoke")
	if !found {
		t.Fatal("collection model not loaded")
	}
	if entity["size"] != 12 {
		t.Errorf("size = %v (%T)", entity["size"], entity["size"])
	}
}

func TestLoadEntitiesFile_MissingIsNotAnError(t *testing.T) {
	reg := NewRegistry()
	if err := LoadEntitiesFile(filepath.Join(t.TempDir(), "nope.yaml"), reg); err != nil {
		t.Errorf("missing file returned %v", err)
	}
}

func TestLoadEntitiesFile_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte(":\t not yaml {"), 0644); err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry()
	if err := LoadEntitiesFile(path, reg); err == nil {
		t.Error("expected error for invalid YAML")
	}
}
