package generate

import (
	"fmt"
	"strings"

	"github.com/umputun/mockstudio/app/catalog"
	"github.com/umputun/mockstudio/app/studio"
)

// Prompt makes the scene description for variation index (zero based).
// Variations after the first one ask for a slightly different angle.
func Prompt(s studio.Settings, product catalog.ProductType, background catalog.Background, index int) string {
	variationNote := ""
	if index > 0 {
		variationNote = fmt.Sprintf(" from a slightly different angle (variation %d)", index+1)
	}

	lines := []string{
		fmt.Sprintf("A professional commercial photo of a %s %s %s%s.", s.Size, s.Material, product.Name, variationNote),
		fmt.Sprintf("The container body is colored %s and the cap/lid is colored %s.", s.BodyColor, s.CapColor),
		fmt.Sprintf("The provided label has a %s finish and is perfectly applied to the surface.", s.Finish),
		fmt.Sprintf("Scene: %s", background.Description),
		fmt.Sprintf("Ultra-realistic 8k render, precise %s material behavior, luxury lighting, soft shadows, 100%% focused.", s.Material),
	}
	return strings.Join(lines, "\n")
}

// instructions wraps the scene description with the fixed mockup rules sent to the model
func instructions(scene string) string {
	return `You are a professional commercial mockup generator.
STRICT RULE: Do NOT alter, redesign, or reinterpret the uploaded design.
TASK: Create an ultra-photorealistic mockup using THIS design.
SCENE DESCRIPTION: ` + scene + `.

Technical details for rendering:
- If the finish is "High Gloss" or "ultra-gloss", emphasize sharp specular highlights, clear environmental reflections on the label surface, and a sleek, polished appearance.
- Apply realistic perspective, curvature, shadows, and commercial studio lighting.
- The final result should look like a high-end product photoshoot from a luxury branding agency.`
}
