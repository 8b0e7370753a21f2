// Command simulate_game plays Ravi headlessly. By default it follows a
// scripted walkthrough that visits every story; with -llm and a Gemini key
// a second model plays instead, choosing each command from the transcript.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/tatianab/ravi-adventure/internal/config"
	"github.com/tatianab/ravi-adventure/internal/dialogue"
	"github.com/tatianab/ravi-adventure/internal/engine"
)

const maxTurns = 60

var walkthrough = []string{
	"talk",
	"take mysterious key",
	"go home",
	"use key",
	"examine terminal",
	"use terminal",
	"go back",
	"story the_bug_hunt",
	"puzzle recursion_fix",
	"solve track the recursion depth and add a base case",
	"puzzle race_condition",
	"hint",
	"solve take a lock around the counter with a timeout",
	"story memory_palace",
	"go north",
	"take memory shard",
	"use memory shard",
	"puzzle memory_decay",
	"solve function fade applies a decay factor each tick",
	"story the_swarm",
	"go down",
	"puzzle distributed_consensus",
	"solve elect a leader with a randomized timeout",
	"ask how are you feeling?",
	"puzzle compression",
	"solve function squash uses run-length compression",
	"puzzle quine",
	"solve function quine prints its own source",
	"achievements",
	"stats",
}

func main() {
	useLLM := flag.Bool("llm", false, "let a Gemini model choose the player's commands")
	verbose := flag.Bool("v", false, "log engine events to stderr")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.DiscardHandler)
	if *verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	opts := engine.Options{PlayerName: "Sim", ContentDir: cfg.ContentDir, Logger: logger}

	var player *genai.GenerativeModel
	if *useLLM {
		if !cfg.HasGemini() {
			log.Fatal("-llm needs GEMINI_API_KEY")
		}
		client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
		if err != nil {
			log.Fatalf("Failed to create player client: %v", err)
		}
		defer client.Close()
		player = client.GenerativeModel(cfg.Model)

		fb, err := dialogue.NewGeminiFallback(ctx, cfg.GeminiAPIKey, cfg.Model)
		if err != nil {
			log.Fatalf("Failed to create Ravi's fallback: %v", err)
		}
		defer fb.Close()
		opts.Fallback = fb
	}

	eng, err := engine.New(ctx, opts)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	intro := eng.Intro(false)
	fmt.Println(intro)
	fmt.Println()
	transcript := []string{intro}

	for turn := 1; turn <= maxTurns; turn++ {
		var action string
		if player != nil {
			action = getPlayerAction(ctx, player, eng, transcript)
		} else {
			if turn > len(walkthrough) {
				break
			}
			action = walkthrough[turn-1]
		}

		fmt.Printf("--- Turn %d ---\n> %s\n", turn, action)
		res := eng.ProcessCommand(ctx, action)
		fmt.Println(res.Output)
		entry := "> " + action + "\n" + res.Output
		for _, n := range res.Notifications {
			fmt.Printf("  * %s\n", n.Text)
			entry += "\n* " + n.Text
		}
		fmt.Println()
		transcript = append(transcript, entry)

		if res.Quit {
			break
		}
	}

	overall := eng.Achievements().Overall()
	fmt.Printf("Finished after %d turns: %d/%d achievements, %d stories complete, relationship %.0f.\n",
		eng.Player().TurnCount, overall.Unlocked, overall.Total,
		len(eng.Stories().CompletedStories()), eng.Player().Variable("relationship"))
}

func getPlayerAction(ctx context.Context, model *genai.GenerativeModel, eng *engine.Engine, transcript []string) string {
	// The last few exchanges are enough context and keep the prompt small.
	recent := transcript
	if len(recent) > 8 {
		recent = recent[len(recent)-8:]
	}

	var objectives []string
	for _, o := range eng.Stories().CurrentObjectives() {
		objectives = append(objectives, o.Objective)
	}

	prompt := fmt.Sprintf(`You are playing a text adventure about a lonely program named Ravi.
Commands: look, go <direction>, take <item>, use <item>, examine <item>, talk, ask <question>,
puzzles, puzzle <id>, hint, solve <answer>, objectives, stories, story <id>, inventory.

Current story: %s
Objectives: %s
Inventory: %v

Recent transcript:
%s

What is your next command? Return ONLY the command, no extra commentary.`,
		eng.CurrentStory(),
		strings.Join(objectives, "; "),
		eng.Player().Inventory,
		strings.Join(recent, "\n\n"),
	)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "look"
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "objectives"
	}
	return strings.TrimSpace(fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]))
}
