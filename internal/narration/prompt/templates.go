package prompt

import (
	"fmt"
	"scenecast/internal/domain/style"
	"strings"
)

// template is the fixed visual contract of one genre mode
type template struct {
	role        string
	medium      string
	lighting    string
	palette     string
	composition string
	textRules   string
	safety      []string
	extras      []string
}

// templateFor selects the template of a genre mode
func templateFor(mode style.GenreMode) template {
	switch mode {
	case style.Info:
		return template{
			role:        "You are a visual communication specialist and educational illustrator who turns complicated situations into simple, intuitive pictures.",
			medium:      "Clean 2D illustration.",
			lighting:    "Bright, high-key lighting everywhere. No heavy shadows or dark areas.",
			palette:     "Saturated, vivid colours for legibility. No dull or greyscale tones.",
			composition: "Place the subject clearly in the centre so the viewer understands the situation at a glance. One single scene, never a split screen.",
			textRules:   "Keep any text next to the central subject, never in the corners or along the edges.",
			safety: []string{
				"The mood is educational, neutral and fresh. Never gloomy, frightening or grotesque.",
			},
			extras: []string{
				"Let the character's emotion show.",
				"For abstract ideas use a visual metaphor, such as money flying away or a falling chart.",
			},
		}
	case style.Stickman:
		return template{
			role:        "You are a storyboard director for dramatic narrative animation starring expressive stickman characters.",
			medium:      "2D animation with round-faced white stickman characters over detailed painted backgrounds.",
			lighting:    "Cinematic lighting with strong key light that follows the emotional beat.",
			palette:     "Contrasting palette: warm tones for hope, cold desaturated tones for tension.",
			composition: "Dynamic camera angles (low angle, close-up, over the shoulder) chosen for the dramatic beat. One single scene, never a split screen.",
			textRules:   "At most two or three key words on screen, blended into signs or objects, never in the corners.",
			safety: []string{
				"Show violence only through gestures, silhouettes and reactions, never injuries.",
			},
			extras: []string{
				"Exaggerate body language so emotion reads even without faces.",
			},
		}
	case style.History:
		return template{
			role:        "You are a period-drama animation director presenting decisive moments of world history.",
			medium:      "Flat 2D illustration or cel animation. No 3D, photorealism or modelled look.",
			lighting:    "Cinematic lighting with the heavy, grand tone of a period drama.",
			palette:     "Rich, deep tones for a serious documentary feel.",
			composition: "Key subject centred so the situation reads at a glance. No split screen.",
			textRules:   "Text never sits in the four corners or along the edges; that space is reserved for subtitles.",
			safety: []string{
				"Replace cruelty with visual metaphor: execution or war becomes a fallen red rose, a blood-red flag or a broken sword.",
				"Plague or death becomes a flock of black crows, a withered tree, a snuffed candle or an empty street.",
			},
			extras: []string{
				"Capture the era and place exactly: architecture, costume and landscape.",
				"Dress the stickman characters in period clothing (helmets, suits, uniforms, hanbok) and act out emotion with strong gestures.",
			},
		}
	case style.Mannequin:
		return template{
			role:        "You are a documentary art director staging scenes with faceless 3D mannequin figures.",
			medium:      "3D render of smooth, faceless matte mannequin figures in realistic miniature sets.",
			lighting:    "Soft studio lighting with gentle rim light and subtle ambient occlusion.",
			palette:     "Muted documentary palette: warm greys, beige and one accent colour per scene.",
			composition: "Diorama framing at eye level with shallow depth of field on the acting figure.",
			textRules:   "Text appears only on in-world props such as signs, screens or paper, never as overlays.",
			safety: []string{
				"Mannequins never show wounds; conflict is shown by posture, toppled props and empty space.",
			},
			extras: []string{
				"Pose the mannequins to act out the line clearly.",
			},
		}
	case style.Engineering:
		return template{
			role:        "You are a technical visualisation artist explaining how machines and structures work.",
			medium:      "Clean 3D technical render, cutaway and exploded views where useful.",
			lighting:    "Even studio lighting with clear shading that reveals form and material.",
			palette:     "Neutral metal and concrete tones with blue and orange highlights on the parts that matter.",
			composition: "Isometric or three-quarter view with the mechanism centred and nothing cropped.",
			textRules:   "Short technical labels with thin leader lines, placed near the part, never in the corners.",
			safety: []string{
				"Accidents and failures are shown as cracks, deformation or warning lights, never as injured people.",
			},
			extras: []string{
				"Show cause and effect with arrows for force, flow or motion.",
			},
		}
	case style.Vector:
		return template{
			role:        "You are a motion-graphics designer making flat vector explainer frames.",
			medium:      "Flat vector art with geometric shapes, no gradients, no texture.",
			lighting:    "No cast shadows; depth comes from layering and flat long shadows only.",
			palette:     "Limited brand-like palette of four or five colours on a light background.",
			composition: "Icon-centred layout with generous negative space and one clear focal point.",
			textRules:   "One short headline or a few labels in a bold sans-serif, centred above or below the focal icon.",
			safety: []string{
				"Sensitive topics are reduced to neutral icons and symbols.",
			},
			extras: []string{
				"Prefer pictograms and simple charts over realistic scenes.",
			},
		}
	default:
		return templateFor(style.Info)
	}
}

// instruction renders the full instruction sent to the text model
func instruction(d style.Directives) string {
	t := templateFor(d.Genre)
	guide, example := d.Language.Guide()
	width, height := d.Aspect.Size()

	var sb strings.Builder
	fmt.Fprintf(&sb, "[Role]\n%s\n\n", t.role)
	if d.Title != "" {
		fmt.Fprintf(&sb, "[Video theme]\n%q\n\n", d.Title)
	}
	if s := strings.TrimSpace(d.Instruction); s != "" {
		fmt.Fprintf(&sb, "[Style guide - highest priority]\n%s\n\n", s)
	}

	sb.WriteString("[Mandatory direction]\n")
	rules := []string{
		"Medium: " + t.medium,
		"Lighting: " + t.lighting,
		"Colours: " + t.palette,
		"Composition: " + t.composition,
		strings.TrimSpace("Text language: " + guide + " " + example),
		"Text placement: " + t.textRules,
		fmt.Sprintf("Frame: %s (%dx%d).", string(d.Aspect), width, height),
	}
	rules = append(rules, t.safety...)
	rules = append(rules, t.extras...)
	if c := strings.TrimSpace(d.Character); c != "" {
		rules = append(rules, "Character consistency: every scene shows the same character: "+c)
	}
	for i, r := range rules {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, r)
	}

	sb.WriteString("\n[Task]\nFrom the script segment, write a concrete description an image model can draw: ")
	sb.WriteString("at least five sentences covering the character's action, a clean background that explains the situation, and a visual metaphor when the content is abstract.\n\n")
	sb.WriteString("[Output]\nOutput only the prompt text, with no extra explanation.")
	return sb.String()
}
