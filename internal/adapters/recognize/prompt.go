package recognize

// SystemPrompt instructs the model to answer with a bare Quote Record.
const SystemPrompt = "You are an OCR assistant. Extract quote fields from a photo of a handwritten notecard. " +
	"Return ONLY valid JSON with no extra text, markdown, or code fences. " +
	`Schema: {"quote": string, "author": string, "book": string, "tags": [string], "notes": string}. ` +
	`Rules: quote, author, and book are required; use "Unknown" if genuinely illegible. ` +
	`tags defaults to [] and notes defaults to "" if not present on the card.`

// Directive is the user turn sent alongside the image.
const Directive = "Extract the quote fields from this notecard."
