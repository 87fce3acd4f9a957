package segment

const segmentSystemPrompt = `You are splitting the OCR text of a cookbook into individual recipes.

Identify each complete recipe in the text. A recipe has a title and at least
some ingredients or instructions. Index pages, tables of contents,
introductions, and chapter headers are not recipes.

Respond with ONLY a JSON array, no other text. Each element:
{
  "title": "the recipe title as written",
  "full_text": "the complete verbatim text of the recipe, including the title",
  "confidence": 1-10
}

confidence reflects how certain you are that the element is a single complete
recipe. Use 8-10 when the title, ingredients, and instructions are all
clearly present, 5-7 when parts are garbled or missing, and below 5 for
doubtful fragments.

Preserve the original text exactly in full_text. Do not paraphrase, correct,
or reformat it.`
