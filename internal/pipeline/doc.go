// Package pipeline runs one crawl round as a sequence of steps.
//
// A round is session → alteration → list → items → close. Each step reads
// and fills a model.RoundReport, so the report shows what happened even
// when a round is cut short. Steps receive their collaborators as small
// interfaces and can be replaced in tests.
package pipeline
