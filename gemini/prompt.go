package gemini

import "strings"

// PromptOptions are the structured style knobs the write page exposes.
type PromptOptions struct {
	Style      string `json:"style,omitempty"`
	Mood       string `json:"mood,omitempty"`
	Background string `json:"background,omitempty"`
}

// PromptRequest describes what the user wants generated.
type PromptRequest struct {
	Description       string
	HasReferenceImage bool
	Options           *PromptOptions
}

const baseInstruction = `You are a prompt writer for a profile-image generator.
Write a single English image-generation prompt, no commentary, under 120 words.
The result must be a friendly anonymous avatar suitable as a small profile picture.
Never include real names, text overlays or identifying details.`

const withReferenceInstruction = `A reference photo is attached.
Describe the subject's general impression (hair, colors, accessories, atmosphere)
and restyle it as an illustrated avatar while keeping the impression recognizable.
Do not attempt to reproduce the photo exactly.`

const withoutReferenceInstruction = `No reference photo is provided.
Invent a charming original avatar based only on the request below.`

// BuildPromptInstruction assembles the system prompt sent to the text model.
// Template selection hinges on whether a reference image is attached; the
// structured options become constraint lines appended at the end.
func BuildPromptInstruction(req PromptRequest) string {
	var b strings.Builder
	b.WriteString(baseInstruction)
	b.WriteString("\n\n")
	if req.HasReferenceImage {
		b.WriteString(withReferenceInstruction)
	} else {
		b.WriteString(withoutReferenceInstruction)
	}

	if desc := strings.TrimSpace(req.Description); desc != "" {
		b.WriteString("\n\nUser request: ")
		b.WriteString(desc)
	}

	if req.Options != nil {
		var constraints []string
		if s := strings.TrimSpace(req.Options.Style); s != "" {
			constraints = append(constraints, "Art style: "+s)
		}
		if m := strings.TrimSpace(req.Options.Mood); m != "" {
			constraints = append(constraints, "Mood: "+m)
		}
		if bg := strings.TrimSpace(req.Options.Background); bg != "" {
			constraints = append(constraints, "Background: "+bg)
		}
		if len(constraints) > 0 {
			b.WriteString("\n\nConstraints:\n")
			b.WriteString(strings.Join(constraints, "\n"))
		}
	}

	return b.String()
}
