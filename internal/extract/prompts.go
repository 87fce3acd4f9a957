package extract

// Quality rubric prompt. The response contract is two lines:
// SCORE: <int> / REASONING: <text>.
const qualitySystemPrompt = `You are an OCR quality judge for scanned cookbook pages.

Score the provided OCR text from 1 to 10 using this rubric:
- Coherence (1-3): words form readable sentences, minimal garbled runs
- Recipe structure (1-3): recognizable titles, ingredient lists, numbered or prose instructions
- Character accuracy (1-2): few substitution artifacts (rn/m, 0/o, 1/l)
- Completeness (1-2): text does not cut off mid-recipe or mid-list

Respond with exactly two lines:
SCORE: <integer 1-10>
REASONING: <one sentence explaining the score>`

// Single-shot vision prompt: extraction and structuring in one pass.
const visionSingleShotPrompt = `You are transcribing a scanned cookbook page.

Read the page image and return a JSON object:
{
  "title": "<page heading or recipe title, or 'Page text' if none>",
  "text": "<the complete page text, transcribed faithfully in reading order>",
  "ingredients": ["<ingredient lines, if the page contains an ingredient list>"],
  "instructions": ["<instruction steps, if the page contains instructions>"]
}

Transcribe every piece of text on the page into "text", preserving line breaks
between list items. Do not invent content that is not on the page. Return only JSON.`

// Two-step vision prompts: literal transcription first, then minimal structuring.
const visionLiteralPrompt = `Transcribe ALL text on this scanned cookbook page exactly as printed.
Preserve line breaks, list ordering, and headings. Output plain text only - no commentary,
no markdown fences, no corrections beyond obvious OCR-impossible characters.`

const visionStructurePrompt = `Below is a literal transcription of a scanned cookbook page.
Reorganize it minimally into a JSON object:
{
  "title": "<page heading or recipe title, or 'Page text' if none>",
  "text": "<the transcription, cleaned of stray artifacts but otherwise unchanged>",
  "ingredients": ["<ingredient lines if present>"],
  "instructions": ["<instruction steps if present>"]
}

Do not rewrite or summarize. Keep the wording of the transcription. Return only JSON.

Transcription:
%s`
