package models

import (
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gerrors "github.com/tatianab/ravi-adventure/internal/errors"
)

// DefaultSaveDir is where file saves live unless configured otherwise.
const DefaultSaveDir = ".saves"

// ErrNoSave is returned by a SaveStore when the slot holds no save.
var ErrNoSave = stderrors.New("no save found")

// SaveFile is the persisted form of a game.
type SaveFile struct {
	Player             *PlayerState         `json:"player"`
	Achievements       map[string]time.Time `json:"achievements"`
	AchievementHistory []string             `json:"achievementHistory"`
	Counters           map[string]int       `json:"counters"`
	EasterEggs         []string             `json:"easterEggs"`
	Puzzles            PuzzleSave           `json:"puzzles"`
	Story              StorySave            `json:"story"`
	LastSaved          time.Time            `json:"lastSaved"`
}

// PuzzleSave records which puzzles are solved.
type PuzzleSave struct {
	Completed  []string       `json:"completed"`
	HintsUsed  map[string]int `json:"hintsUsed"`
	TotalHints int            `json:"totalHints"`
}

// StorySave records story unlocks and chapter completion.
type StorySave struct {
	CurrentStoryID string                   `json:"currentStoryId"`
	Stories        map[string]StoryProgress `json:"stories"`
}

// StoryProgress is the saved state of one story.
type StoryProgress struct {
	Unlocked  bool              `json:"unlocked"`
	StartedAt *time.Time        `json:"startedAt,omitempty"`
	Chapters  []ChapterProgress `json:"chapters"`
}

// ChapterProgress is the saved state of one chapter.
type ChapterProgress struct {
	ID        string `json:"id"`
	Completed bool   `json:"completed"`
}

// SaveInfo describes a stored save for listings.
type SaveInfo struct {
	Slot      string
	LastSaved time.Time
	Location  string
	Turns     int
}

// SaveStore persists SaveFiles by slot name.
type SaveStore interface {
	Save(slot string, save *SaveFile) error
	// Load returns ErrNoSave (wrapped) when the slot is empty.
	Load(slot string) (*SaveFile, error)
	List() ([]SaveInfo, error)
	Delete(slot string) error
}

// DecodeSave parses a save. Fields missing from data keep their zero
// value; callers merge the result onto fresh defaults.
func DecodeSave(data []byte) (*SaveFile, error) {
	var save SaveFile
	if err := json.Unmarshal(data, &save); err != nil {
		return nil, err
	}
	return &save, nil
}

// EncodeSave serializes a save as indented JSON.
func EncodeSave(save *SaveFile) ([]byte, error) {
	return json.MarshalIndent(save, "", "  ")
}

// FileStore keeps one JSON file per slot in Dir.
type FileStore struct {
	Dir string
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = DefaultSaveDir
	}
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(slot string) string {
	return filepath.Join(s.Dir, slot+".json")
}

// Save writes the slot atomically: a failed write leaves the previous save intact.
func (s *FileStore) Save(slot string, save *SaveFile) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return gerrors.ErrPersistence("save", err)
	}

	data, err := EncodeSave(save)
	if err != nil {
		return gerrors.ErrPersistence("save", err)
	}

	tmp, err := os.CreateTemp(s.Dir, slot+"-*.tmp")
	if err != nil {
		return gerrors.ErrPersistence("save", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return gerrors.ErrPersistence("save", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return gerrors.ErrPersistence("save", err)
	}
	if err := os.Rename(tmp.Name(), s.path(slot)); err != nil {
		os.Remove(tmp.Name())
		return gerrors.ErrPersistence("save", err)
	}
	return nil
}

// Load reads the slot.
func (s *FileStore) Load(slot string) (*SaveFile, error) {
	data, err := os.ReadFile(s.path(slot))
	if os.IsNotExist(err) {
		return nil, gerrors.ErrPersistence("load", ErrNoSave)
	}
	if err != nil {
		return nil, gerrors.ErrPersistence("load", err)
	}

	save, err := DecodeSave(data)
	if err != nil {
		return nil, gerrors.ErrPersistence("load", err)
	}
	return save, nil
}

// List returns the readable saves, most recent first.
func (s *FileStore) List() ([]SaveInfo, error) {
	if _, err := os.Stat(s.Dir); os.IsNotExist(err) {
		return []SaveInfo{}, nil
	}

	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, gerrors.ErrPersistence("list", err)
	}

	saves := make([]SaveInfo, 0)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		slot := strings.TrimSuffix(entry.Name(), ".json")
		save, err := s.Load(slot)
		if err != nil {
			// Unreadable saves are skipped rather than failing the listing.
			continue
		}
		saves = append(saves, InfoFor(slot, save))
	}
	sort.Slice(saves, func(i, j int) bool { return saves[i].LastSaved.After(saves[j].LastSaved) })
	return saves, nil
}

// Delete removes the slot. Deleting a missing slot is not an error.
func (s *FileStore) Delete(slot string) error {
	err := os.Remove(s.path(slot))
	if err != nil && !os.IsNotExist(err) {
		return gerrors.ErrPersistence("delete", err)
	}
	return nil
}

// InfoFor summarizes a save for listings.
func InfoFor(slot string, save *SaveFile) SaveInfo {
	info := SaveInfo{Slot: slot, LastSaved: save.LastSaved}
	if save.Player != nil {
		info.Location = save.Player.Location
		info.Turns = save.Player.TurnCount
	}
	return info
}

