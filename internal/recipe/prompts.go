package recipe

const fieldParserSystemPrompt = `You are extracting structured fields from the OCR text of a single recipe.

Respond with ONLY a JSON object, no other text:
{
  "title": "the recipe title",
  "description": "brief description if present, else empty string",
  "ingredients": ["one ingredient line per element, verbatim"],
  "instructions": ["one step per element"],
  "prep_time": minutes as a number or null,
  "cook_time": minutes as a number or null,
  "servings": a number or null,
  "difficulty": "easy", "medium", "hard", or empty string,
  "tags": ["short descriptive tags"],
  "source": "attribution if the text names one, else empty string"
}

Transcribe ingredients exactly as written. Do not invent fields the text does
not support; use null or empty values instead.`
