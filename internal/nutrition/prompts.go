package nutrition

import "fmt"

// textPrompt instructs the model to return strictly a JSON object for a
// typed food description.
func textPrompt(description string) string {
	return fmt.Sprintf(`As a nutrition expert, analyze this food description and provide:
%s

Please provide:
1. Estimated calories
2. Protein (g)
3. Carbohydrates (g)
4. Fats (g)
5. Brief nutritional analysis

Format the response as a JSON object with these keys: calories, protein, carbs, fats, analysis.
Only return the JSON object, no additional text.`, description)
}

// imagePrompt is the instruction block sent alongside the photo on the
// direct image path. It additionally requests a description key.
const imagePrompt = `As a nutrition expert, analyze this food image and provide:
1. A detailed description of what you see
2. Estimated calories
3. Protein (g)
4. Carbohydrates (g)
5. Fats (g)
6. Brief nutritional analysis

Format the response as a JSON object with these keys: description, calories, protein, carbs, fats, analysis.
Only return the JSON object, no additional text.`

// visionSystem is the system instruction for the direct image path.
const visionSystem = "You are a nutrition expert. Analyze food images and provide detailed nutritional information in JSON format."

// describePrompt is the fallback's sole instruction: free-form prose, no
// JSON formatting requirement.
const describePrompt = "Please describe what food you see in this image in detail."
