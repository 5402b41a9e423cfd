package llm

import "strings"

// PromptFormat is the closed set of prompt templates understood by the
// local completion backend. The variant is resolved once from the model
// identifier, never by ad-hoc string checks at call sites.
type PromptFormat int

const (
	// FormatRaw passes the prompt through untouched.
	FormatRaw PromptFormat = iota

	// FormatInstruct wraps the prompt in [INST] brackets
	// (Mistral/Llama instruct family).
	FormatInstruct

	// FormatChatML renders <|im_start|> chat messages
	// (Qwen/Hermes/ChatML family).
	FormatChatML

	// FormatAlpaca uses "### Instruction:" / "### Response:" headers.
	FormatAlpaca
)

func (f PromptFormat) String() string {
	switch f {
	case FormatInstruct:
		return "instruct"
	case FormatChatML:
		return "chatml"
	case FormatAlpaca:
		return "alpaca"
	default:
		return "raw"
	}
}

// formatMarkers maps lowercase model-name substrings to a format. First
// match wins; order matters because some model ids contain several
// family names ("wizard-mistral" is alpaca-tuned, not instruct).
var formatMarkers = []struct {
	marker string
	format PromptFormat
}{
	{"chatml", FormatChatML},
	{"qwen", FormatChatML},
	{"hermes", FormatChatML},
	{"yi-", FormatChatML},
	{"alpaca", FormatAlpaca},
	{"wizard", FormatAlpaca},
	{"vicuna", FormatAlpaca},
	{"mistral", FormatInstruct},
	{"mixtral", FormatInstruct},
	{"codellama", FormatInstruct},
	{"llama", FormatInstruct},
}

// ResolvePromptFormat picks the PromptFormat for a model identifier by
// case-insensitive substring match, falling back to FormatRaw.
func ResolvePromptFormat(model string) PromptFormat {
	lowered := strings.ToLower(model)
	for _, m := range formatMarkers {
		if strings.Contains(lowered, m.marker) {
			return m.format
		}
	}
	return FormatRaw
}

// Render produces the wire prompt for this format. system may be empty.
func (f PromptFormat) Render(system, user string) string {
	switch f {
	case FormatInstruct:
		var b strings.Builder
		b.WriteString("[INST] ")
		if system != "" {
			b.WriteString("<<SYS>>\n")
			b.WriteString(system)
			b.WriteString("\n<</SYS>>\n\n")
		}
		b.WriteString(user)
		b.WriteString(" [/INST]")
		return b.String()
	case FormatChatML:
		var b strings.Builder
		if system != "" {
			b.WriteString("<|im_start|>system\n")
			b.WriteString(system)
			b.WriteString("<|im_end|>\n")
		}
		b.WriteString("<|im_start|>user\n")
		b.WriteString(user)
		b.WriteString("<|im_end|>\n<|im_start|>assistant\n")
		return b.String()
	case FormatAlpaca:
		var b strings.Builder
		if system != "" {
			b.WriteString(system)
			b.WriteString("\n\n")
		}
		b.WriteString("### Instruction:\n")
		b.WriteString(user)
		b.WriteString("\n\n### Response:\n")
		return b.String()
	default:
		if system != "" {
			return system + "\n\n" + user
		}
		return user
	}
}
