package script

import (
	"fmt"
	"strings"
)

func sectionPrompt(title, outline string, length Length, instruction string) string {
	chars, guidance := length.target()

	var b strings.Builder
	b.WriteString("[Role]\nYou are a top documentary scriptwriter for YouTube.\n\n")
	fmt.Fprintf(&b, "[Task]\nWrite only the %q part of the overall structure.\n\n", title)
	fmt.Fprintf(&b, "[Context (Overall Structure)]\n%s\n\n", outline)
	if strings.TrimSpace(instruction) != "" {
		fmt.Fprintf(&b, "[User's Special Direction]\nYou MUST follow this direction for tone and style: %q\n\n", instruction)
	}
	fmt.Fprintf(&b, "[Length Constraints]\n- Target length: %s\n- Guidance: %s\n\n", chars, guidance)
	b.WriteString(`[Style Guidelines]
1. Use a formal, serious and immersive documentary tone.
2. Keep the surrounding chapters in mind but cover only this part.
3. Output narration only: no stage directions or sound cues.
4. Start with the script itself, no small talk.
5. Do not add foreign-language glosses in parentheses.
6. Use commas and connectives for a rhythm that flows without choppiness.
7. Never end with previews such as "in the next chapter".
8. Never write interim summaries such as "so far we have seen".
9. These texts are joined later, so simply end on a full sentence.
10. Do not repeat the chapter number or heading in the body.

`)
	fmt.Fprintf(&b, "[Output]\nStart writing %s now.\n", title)
	return b.String()
}

func titlesPrompt(topic, outline string) string {
	var task, context string
	switch {
	case topic != "" && outline == "":
		task = fmt.Sprintf("[Target Topic]\n%q\n[Task]\nGenerate 5 click-worthy YouTube video titles close to the topic above.", topic)
		context = "No script provided. Base it solely on the topic."
	case topic != "":
		task = fmt.Sprintf("[Target Context]\n%q\n[Task]\nGenerate 5 variations of this title suitable for YouTube, considering the script below.", topic)
		context = outline
	default:
		task = "[Task]\nRead the provided script structure and generate 5 catchy YouTube video titles in Korean."
		context = outline
	}

	return fmt.Sprintf(`[Role] You are a YouTube viral marketing expert.
%s

[Script Context]
%s

[Output Format]
- Output ONLY the list of 5 titles.
- No numbering, just 5 lines of text.
- Language: Korean
- If a title contains '몰락' it must end with '몰락'.
`, task, context)
}
