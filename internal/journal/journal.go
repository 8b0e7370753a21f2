// Package journal renders a player's progress as a printable PDF.
package journal

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/tatianab/ravi-adventure/internal/achievement"
	gerrors "github.com/tatianab/ravi-adventure/internal/errors"
	"github.com/tatianab/ravi-adventure/internal/models"
	"github.com/tatianab/ravi-adventure/internal/puzzle"
	"github.com/tatianab/ravi-adventure/internal/story"
)

// Source is a running game to write a journal for.
type Source interface {
	Player() *models.PlayerState
	Location() models.Location
	Achievements() *achievement.Registry
	Puzzles() *puzzle.Registry
	Stories() *story.Manager
}

// Entry is one line of a journal section.
type Entry struct {
	Title  string
	Detail string
}

// Journal is the content of an exported journal.
type Journal struct {
	Player       string
	Location     string
	Turns        int
	Relationship float64
	Inventory    []string
	EasterEggs   int
	Achievements []Entry
	Unlocked     achievement.Stats
	Puzzles      []Entry
	Stories      []Entry
	GeneratedAt  time.Time
}

// Build collects the journal for src.
func Build(src Source, now time.Time) Journal {
	p := src.Player()
	ach := src.Achievements()

	j := Journal{
		Player:       p.Name,
		Location:     src.Location().Name,
		Turns:        p.TurnCount,
		Relationship: p.Variable("relationship"),
		Inventory:    append([]string(nil), p.Inventory...),
		EasterEggs:   len(ach.EasterEggs()),
		Unlocked:     ach.Overall(),
		GeneratedAt:  now,
	}

	// Oldest unlock first, so the journal reads in the order things happened.
	recent := ach.Recent(j.Unlocked.Unlocked)
	slices.Reverse(recent)
	for _, r := range recent {
		j.Achievements = append(j.Achievements, Entry{
			Title:  fmt.Sprintf("%s (%s)", r.Achievement.Name, r.Achievement.Rarity),
			Detail: fmt.Sprintf("%s Unlocked %s.", r.Achievement.Description, r.UnlockedAt.Format("Jan 2 15:04")),
		})
	}

	hints := src.Puzzles().Snapshot().HintsUsed
	for _, def := range src.Puzzles().List() {
		if !src.Puzzles().IsCompleted(def.ID) {
			continue
		}
		j.Puzzles = append(j.Puzzles, Entry{
			Title:  def.Title,
			Detail: fmt.Sprintf("%s, difficulty %d, %d hint(s)", def.Category, def.Difficulty, hints[def.ID]),
		})
	}

	for _, s := range src.Stories().Stories() {
		if !s.Unlocked {
			continue
		}
		done := 0
		for _, ch := range s.Chapters {
			if ch.Completed {
				done++
			}
		}
		detail := fmt.Sprintf("%d of %d chapters", done, len(s.Chapters))
		if src.Stories().IsStoryComplete(s.ID) {
			detail = "Complete. " + detail
		}
		j.Stories = append(j.Stories, Entry{Title: s.Name, Detail: detail})
	}
	return j
}

// Write renders j as a PDF to w.
func Write(w io.Writer, j Journal) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(j.Player+"'s journal"), false)
	pdf.SetCreator("ravi", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, tr(j.Player+"'s journal"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "I", 10)
	pdf.CellFormat(0, 6, tr("Written "+j.GeneratedAt.Format("January 2, 2006 at 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, tr(fmt.Sprintf(
		"Last seen in %s after %d turns. Ravi's trust: %.0f/100. Easter eggs found: %d.",
		j.Location, j.Turns, j.Relationship, j.EasterEggs)), "", "L", false)
	if len(j.Inventory) > 0 {
		pdf.MultiCell(0, 6, tr("Carrying: "+strings.Join(j.Inventory, ", ")+"."), "", "L", false)
	}

	section(pdf, tr, fmt.Sprintf("Achievements (%d/%d, %d%%)", j.Unlocked.Unlocked, j.Unlocked.Total, j.Unlocked.Percentage), j.Achievements, "None yet.")
	section(pdf, tr, "Puzzles solved", j.Puzzles, "None yet.")
	section(pdf, tr, "Stories", j.Stories, "None open.")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render journal: %w", err)
	}
	return nil
}

func section(pdf *gofpdf.Fpdf, tr func(string) string, title string, entries []Entry, empty string) {
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr(title), "B", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(entries) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.CellFormat(0, 6, tr(empty), "", 1, "L", false, 0, "")
		return
	}
	for _, e := range entries {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 6, tr(e.Title), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(e.Detail), "", "L", false)
		pdf.Ln(1)
	}
}

// Export writes the journal for src to the file at path.
func Export(src Source, path string, now time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return gerrors.ErrPersistence("journal", err)
	}
	if err := Write(f, Build(src, now)); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return gerrors.ErrPersistence("journal", err)
	}
	return nil
}
