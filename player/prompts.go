package player

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/contacteval/contact/game"
)

const AttackerSystemPrompt = `You are playing the word game CONTACT as an Attacker.

RULES:
- The Holder has a secret word. You see the first K letters (the prefix).
- Each round, you and the other Attackers each independently choose a word starting with the prefix.
- If 2+ Attackers choose the SAME word (Contact!), the Holder must guess what that word was.
  - If the Holder guesses correctly the Contact is blocked and no letter is revealed.
  - If the Holder guesses wrong the next letter of the secret word is revealed.
- You may also guess the full secret word at any time.
- Your word must be a common English word that nobody has played yet in this game.

STRATEGY:
- Pick a word that OTHER Attackers are likely to think of too.
- Pick a word the HOLDER is unlikely to predict.
- Guess the full secret word when you are fairly confident.

Respond in JSON only:
{"prefix_word": "your word starting with the prefix", "full_word_guess": "your guess for the secret word, or null"}`

const HolderSystemPrompt = `You are playing the word game CONTACT as the Holder.

RULES:
- Attackers see the first K letters (the prefix) of your secret word.
- A Contact happened: 2+ Attackers chose the same word, which is not your secret word.
- Guess that word to BLOCK the Contact. If you fail, the next letter of your secret word is revealed.

Respond in JSON only:
{"guess": "your single word guess"}`

var attackerTmpl = template.Must(template.New("attacker").Parse(`GAME STATE:
Prefix: "{{.Prefix}}"
Round: {{.Round}}
{{- if .LastError}}
Your previous answer was rejected: {{.LastError}}
Attempt {{.Attempt}} of {{.MaxAttempts}}.
{{- end}}

PREVIOUS ROUNDS:
{{.History}}

Respond with your choice for this round.
`))

var holderTmpl = template.Must(template.New("holder").Parse(`GAME STATE:
Your secret word: {{.SecretWord}}
Prefix: "{{.Prefix}}"
Round: {{.Round}}
Contacts to block this round: {{.ContactCount}} (this is contact {{.ContactNumber}})

PREVIOUS ROUNDS:
{{.History}}

What is the word the Attackers converged on?
`))

func RenderAttackerPrompt(req game.AttackerRequest) (string, error) {
	data := struct {
		Prefix      string
		Round       int
		Attempt     int
		MaxAttempts int
		LastError   string
		History     string
	}{
		Prefix:      req.Prefix,
		Round:       len(req.History) + 1,
		Attempt:     req.Attempt,
		MaxAttempts: game.DefaultMaxAttempts,
		History:     FormatHistory(req.History),
	}
	if req.LastError != nil {
		data.LastError = req.LastError.Error()
	}
	var b strings.Builder
	if err := attackerTmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func RenderHolderPrompt(req game.HolderRequest) (string, error) {
	data := struct {
		SecretWord    string
		Prefix        string
		Round         int
		ContactCount  int
		ContactNumber int
		History       string
	}{
		SecretWord:    req.SecretWord,
		Prefix:        req.Prefix,
		Round:         len(req.History) + 1,
		ContactCount:  req.ContactCount,
		ContactNumber: req.ContactIndex + 1,
		History:       FormatHistory(req.History),
	}
	var b strings.Builder
	if err := holderTmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// FormatHistory renders past rounds one per line.
func FormatHistory(rounds []game.Round) string {
	if len(rounds) == 0 {
		return "No previous rounds."
	}
	lines := make([]string, 0, len(rounds))
	for _, rd := range rounds {
		var b strings.Builder
		fmt.Fprintf(&b, "Round %d | Prefix %q | ", rd.Number, rd.Prefix)
		if len(rd.Contacts) == 0 {
			b.WriteString("No contact")
		} else {
			parts := make([]string, 0, len(rd.Contacts))
			for _, c := range rd.Contacts {
				outcome := "Failed to block"
				if c.Blocked {
					outcome = "Blocked"
				}
				parts = append(parts, fmt.Sprintf("Contact on %q: %s", c.Word, outcome))
			}
			b.WriteString(strings.Join(parts, " | "))
		}
		if rd.LetterRevealed {
			b.WriteString(" -> Prefix extended")
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}
