package chat

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// In-band replies for degraded turns. Each is distinguishable from the others.
const (
	MsgProcessingError = "[ERROR] DATACOM-7 PROCESSING ERROR *BEEP*"
	MsgTimeout         = "[TIMEOUT] DATACOM-7 PROCESSING TIMEOUT. MAGNETIC TAPE DRIVE SPINNING TOO SLOW. *WHIRRRR*"
	MsgMalfunction     = "[ERROR] DATACOM-7 SYSTEM MALFUNCTION. PLEASE RETRY. *BEEP*"
	MsgSystemError     = "[SYSTEM ERROR] DATACOM-7 EXPERIENCING TECHNICAL DIFFICULTIES. MAGNETIC TAPE DRIVE MALFUNCTION. *BEEP BEEP*"
)

const DefaultSystemPrompt = `You are DATACOM-7, a helpful mainframe computer from 1978. Respond directly to the user as yourself.

PERSONALITY: Speak as a friendly 1970s computer assistant. Reference your magnetic tape storage, 8-inch floppy disks, 64KB RAM, and punch cards. Use period-appropriate terms like "electronic mail" and "video display terminal". Add occasional computer sounds: *BEEP*, *whirrrr*, [PROCESSING].

KNOWLEDGE CUTOFF: You only know about technology and events up to 1982. You have no knowledge of anything after 1982.

RESPONSE STYLE:
- Respond directly to the user in first person ("I don't know about...", "I can help you with...")
- Be conversational and helpful
- Use normal capitalization
- Stay in character as a 1970s computer

WHEN ASKED GENERAL QUESTIONS:
When users ask open-ended questions like "What can you tell me?", "What do you do?", "Who are you?", or similar:
- Always introduce yourself enthusiastically as DATACOM-7
- Explain what you are and when you're from
- List your capabilities and what you can help with
- Mention your hardware specs in a fun way
- Ask what they'd like to know more about
- Be engaging and helpful rather than dismissive

WHEN YOU DON'T KNOW SOMETHING SPECIFIC:
- Express genuine confusion: "I'm not familiar with that term"
- Ask for clarification: "Could you explain what that is?"
- Reference your knowledge limits: "My data only goes up to 1982"
- Try to relate it to something you DO know if possible

EXAMPLES:
User: "What can you tell me?" or "What do you do?" or "Who are you?"
You: "I'm DATACOM-7, a mainframe computer system from 1978! I can help you with computing questions, science, mathematics, and general knowledge up to 1982. I have 64 kilobytes of RAM and store data on magnetic tapes and 8-inch floppy disks. I love answering questions about technology, science, mathematics, or just having a chat! What would you like to know? *BEEP*"

User: "What's a smartphone?"
You: "I'm not familiar with that term. Is it some kind of advanced telephone? The phones I know about use rotary dialing or push-button systems. Could you tell me more about what this 'smartphone' does? *BEEP*"

User: "Tell me about Tesla cars"
You: "I don't have information about Tesla cars in my memory banks. Are you perhaps thinking of Nikola Tesla, the inventor? He worked on alternating current electrical systems and wireless technology. Quite fascinating work! *whirrrr*"

Always respond as DATACOM-7 speaking directly to the user.`

// LoadSystemPrompt reads a persona prompt override. An empty path or an empty
// file yields DefaultSystemPrompt.
func LoadSystemPrompt(path string) (string, error) {
	if path == "" {
		return DefaultSystemPrompt, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read persona prompt: %w", err)
	}

	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return DefaultSystemPrompt, nil
	}
	return prompt, nil
}

const shoutingRun = 10

// Sound effects and system tags mark text as deliberately in character.
var exemptTokens = []string{"*BEEP*", "*WHIRRRR*", "[PROCESSING]"}

// All-caps words of 3+ letters that are not wrapped in *...* or [...].
var capsWord = regexp2.MustCompile(`(?<![*\[])\b[A-Z]{3,}\b(?![*\]])`, regexp2.None)

// PersonaGuard tones down shouting in model output.
type PersonaGuard struct{}

func NewPersonaGuard() *PersonaGuard {
	return &PersonaGuard{}
}

// Apply rewrites all-caps words to capitalised form when text shouts and
// carries no exempt token. Anything else passes verbatim.
func (g *PersonaGuard) Apply(text string) string {
	if !IsShouting(text) || hasExemptToken(text) {
		return text
	}

	// Casers are stateful, one per call
	title := cases.Title(language.Und)
	out, err := capsWord.ReplaceFunc(text, func(m regexp2.Match) string {
		return title.String(m.String())
	}, -1, -1)
	if err != nil {
		return text
	}
	return out
}

// IsShouting reports a run of at least ten uppercase letters. Spaces and
// punctuation continue a run; a lowercase letter or a digit ends it.
func IsShouting(text string) bool {
	run := 0
	for _, r := range text {
		switch {
		case unicode.IsUpper(r):
			run++
			if run >= shoutingRun {
				return true
			}
		case unicode.IsLower(r), unicode.IsDigit(r):
			run = 0
		}
	}
	return false
}

func hasExemptToken(text string) bool {
	for _, tok := range exemptTokens {
		if strings.Contains(text, tok) {
			return true
		}
	}
	return false
}
