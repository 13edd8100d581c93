// Package gemini implements the pipeline.SummaryEngine interface using
// Google's Gemini API.
//
// The engine sends truncated transcript text with a JSON-schema prompt and
// parses the structured {title, summary, tags} response into the domain
// Summary type. Each Summarize call makes a single generation attempt so
// inference failures surface to the task immediately.
package gemini
