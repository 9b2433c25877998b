// Package enrich turns transcript text into a summary, tags, a sentiment
// score, and a mood suggestion.
//
// Everything is keyword-driven against fixed Turkish lexicons; there is no
// model inference and no I/O, which keeps the engine deterministic and makes
// the pipeline's text stages trivially testable.
package enrich
