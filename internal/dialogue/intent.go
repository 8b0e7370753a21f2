// Package dialogue is Ravi: a keyword-matched conversational companion with
// a mood, opinions about the player and an optional language-model voice for
// input it does not understand.
package dialogue

import (
	"regexp"
	"strings"
)

// Intent is the classified purpose of a line of player text.
type Intent string

const (
	IntentGreeting   Intent = "greeting"
	IntentFarewell   Intent = "farewell"
	IntentHelp       Intent = "help"
	IntentIdentity   Intent = "identity"
	IntentFeelings   Intent = "feelings"
	IntentCompliment Intent = "compliment"
	IntentInsult     Intent = "insult"
	IntentPuzzle     Intent = "puzzle"
	IntentStory      Intent = "story"
	IntentThanks     Intent = "thanks"
	IntentSecret     Intent = "secret"
	IntentUnknown    Intent = "unknown"
)

type rule struct {
	intent  Intent
	pattern *regexp.Regexp
}

// Rules are tried in order; the first match wins.
var rules = []rule{
	{IntentSecret, regexp.MustCompile(`\b(xyzzy|plugh|sudo make me a sandwich)\b`)},
	{IntentInsult, regexp.MustCompile(`\b(stupid|dumb|useless|hate you|shut up|idiot)\b`)},
	{IntentThanks, regexp.MustCompile(`\b(thanks|thank you|thx|cheers)\b`)},
	{IntentCompliment, regexp.MustCompile(`\b(smart|clever|awesome|great|love you|cool|amazing|good job)\b`)},
	{IntentFarewell, regexp.MustCompile(`\b(bye|goodbye|see you|good night|later)\b`)},
	{IntentGreeting, regexp.MustCompile(`^(hi|hello|hey|yo|greetings|good (morning|afternoon|evening))\b`)},
	{IntentIdentity, regexp.MustCompile(`\b(who are you|what are you|your name|are you (an? )?(ai|robot|program|human))\b`)},
	{IntentFeelings, regexp.MustCompile(`\b(how are you|how do you feel|are you ok|feeling|happy|sad|lonely)\b`)},
	{IntentHelp, regexp.MustCompile(`\b(help|stuck|what (do|should) i do|how do i|hint)\b`)},
	{IntentPuzzle, regexp.MustCompile(`\b(puzzles?|bugs?|code|recursion|algorithm|debug)\b`)},
	{IntentStory, regexp.MustCompile(`\b(story|stories|chapter|objective|quest|swarm|memory|memories)\b`)},
}

// Classify maps free text to an intent by keyword matching.
func Classify(text string) Intent {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return IntentUnknown
	}
	for _, r := range rules {
		if r.pattern.MatchString(t) {
			return r.intent
		}
	}
	return IntentUnknown
}
