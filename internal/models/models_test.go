package models

import (
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	gerrors "github.com/tatianab/ravi-adventure/internal/errors"
)

func TestPlayerStateJSON(t *testing.T) {
	state := NewPlayerState("Ada", "start")
	state.SetFlag("met_ravi")
	state.SetFlag("completed_bug_hunt")
	state.SetVariable("relationship", 72)
	state.AddItem("mysterious key")
	state.AddItem("rubber duck")
	state.TurnCount = 7

	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("Failed to marshal state: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Failed to decode raw state: %v", err)
	}
	if _, ok := raw["flags"].([]any); !ok {
		t.Errorf("Expected flags to serialize as an array, got %T", raw["flags"])
	}

	state2 := NewPlayerState("", "")
	if err := json.Unmarshal(data, state2); err != nil {
		t.Fatalf("Failed to unmarshal state: %v", err)
	}

	if !state2.HasFlag("met_ravi") || !state2.HasFlag("completed_bug_hunt") {
		t.Errorf("Expected flags to survive, got %v", state2.SortedFlags())
	}
	if !reflect.DeepEqual(state2.Inventory, []string{"mysterious key", "rubber duck"}) {
		t.Errorf("Expected inventory order to survive, got %v", state2.Inventory)
	}
	if state2.Variable("relationship") != 72 {
		t.Errorf("Expected relationship 72, got %v", state2.Variable("relationship"))
	}
	if state2.TurnCount != 7 || state2.Location != "start" || state2.Name != "Ada" {
		t.Errorf("Unexpected scalar fields: %+v", state2)
	}
}

func TestPlayerStateUnmarshalMergesDefaults(t *testing.T) {
	state := NewPlayerState("Player", "start")
	state.SetVariable("relationship", 50)
	state.SetVariable("curiosity", 10)

	partial := []byte(`{"location": "home", "variables": {"curiosity": 400}, "inventory": ["key", "key", "map"]}`)
	if err := json.Unmarshal(partial, state); err != nil {
		t.Fatalf("Failed to unmarshal partial state: %v", err)
	}

	if state.Location != "home" {
		t.Errorf("Expected location home, got %s", state.Location)
	}
	if state.Variable("relationship") != 50 {
		t.Errorf("Expected default relationship to be kept, got %v", state.Variable("relationship"))
	}
	if state.Variable("curiosity") != VariableMax {
		t.Errorf("Expected loaded variable clamped to %v, got %v", VariableMax, state.Variable("curiosity"))
	}
	if !reflect.DeepEqual(state.Inventory, []string{"key", "map"}) {
		t.Errorf("Expected duplicate items dropped, got %v", state.Inventory)
	}
	if state.Flags == nil {
		t.Error("Expected flags map to be initialized")
	}
}

func TestAdjustVariableClamps(t *testing.T) {
	state := NewPlayerState("Player", "start")
	deltas := []float64{1e9, -1e9, 35, -5, 1e12, 60, -1e12}

	for _, d := range deltas {
		v := state.AdjustVariable("relationship", d)
		if v < VariableMin || v > VariableMax {
			t.Fatalf("relationship %v escaped [%v, %v] after delta %v", v, VariableMin, VariableMax, d)
		}
	}
	if state.Variable("relationship") != 0 {
		t.Errorf("Expected relationship 0, got %v", state.Variable("relationship"))
	}
}

func TestInventoryIsUniqueAndOrdered(t *testing.T) {
	state := NewPlayerState("Player", "start")

	if !state.AddItem("a") || !state.AddItem("b") || !state.AddItem("c") {
		t.Fatal("Expected new items to be added")
	}
	if state.AddItem("b") {
		t.Error("Expected duplicate item to be rejected")
	}
	if !state.RemoveItem("b") {
		t.Error("Expected held item to be removed")
	}
	if !reflect.DeepEqual(state.Inventory, []string{"a", "c"}) {
		t.Errorf("Unexpected inventory %v", state.Inventory)
	}
}

func TestApplyEffect(t *testing.T) {
	state := NewPlayerState("Player", "start")
	state.SetFlag("met_ravi")

	newFlags := state.Apply(Effect{
		SetFlags:  []string{"met_ravi", "opened_box"},
		Variables: map[string]float64{"relationship": 5},
		Give:      []string{"memory shard"},
	})

	if !reflect.DeepEqual(newFlags, []string{"opened_box"}) {
		t.Errorf("Expected only opened_box to be new, got %v", newFlags)
	}
	if state.Variable("relationship") != 5 {
		t.Errorf("Expected relationship 5, got %v", state.Variable("relationship"))
	}
	if !state.HasItem("memory shard") {
		t.Error("Expected memory shard in inventory")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "saves"))
	player := NewPlayerState("Ada", "home")
	player.AddItem("mysterious key")
	saved := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	save := &SaveFile{
		Player:       player,
		Achievements: map[string]time.Time{"first_steps": saved},
		Puzzles:      PuzzleSave{Completed: []string{"recursion_fix"}},
		Story: StorySave{
			CurrentStoryID: "awakening",
			Stories: map[string]StoryProgress{
				"awakening": {Unlocked: true, Chapters: []ChapterProgress{{ID: "first_contact", Completed: true}}},
			},
		},
		LastSaved: saved,
	}

	if err := store.Save("current", save); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load("current")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Player.Location != "home" || !loaded.Player.HasItem("mysterious key") {
		t.Errorf("Unexpected player %+v", loaded.Player)
	}
	if !loaded.Achievements["first_steps"].Equal(saved) {
		t.Errorf("Unexpected achievements %v", loaded.Achievements)
	}
	if !loaded.Story.Stories["awakening"].Chapters[0].Completed {
		t.Error("Expected chapter completion to survive")
	}

	saves, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(saves) != 1 || saves[0].Slot != "current" || saves[0].Location != "home" {
		t.Errorf("Unexpected listing %+v", saves)
	}

	if err := store.Delete("current"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete("current"); err != nil {
		t.Errorf("Deleting a missing slot should not fail: %v", err)
	}
}

func TestFileStoreLoadErrors(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	_, err := store.Load("missing")
	if err == nil || !gerrors.IsPersistence(err) {
		t.Fatalf("Expected persistence error for missing save, got %v", err)
	}
	if !stderrors.Is(err, ErrNoSave) {
		t.Errorf("Expected ErrNoSave, got %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"player": {"loc`), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = store.Load("broken")
	if err == nil || !gerrors.IsPersistence(err) {
		t.Fatalf("Expected persistence error for truncated save, got %v", err)
	}
	if stderrors.Is(err, ErrNoSave) {
		t.Error("Truncated save must not look like a missing one")
	}

	saves, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(saves) != 0 {
		t.Errorf("Expected broken save to be skipped, got %+v", saves)
	}
}

