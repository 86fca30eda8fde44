// Package harvest implements the crawl orchestration engine: frontier
// discovery over an infinitely-scrolling listing, URL canonicalization and
// deduplication, bounded-retry detail fetches, stagnation detection, and the
// append-only journals that make a run resumable.
package harvest
