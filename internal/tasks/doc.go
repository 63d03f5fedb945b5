// Package tasks orchestrates the image-to-playlist chain and the offline corpus
// build with real-time progress reporting.
//
// # Core Operations
//
//  1. [MoodEngine.Run] : Full image → playlist pipeline
//     - Extracts a structured vibe analysis from the uploaded image
//     - Retrieves corpus candidates when a vector index is configured
//     - Generates the playlist, grounded on candidates when available
//     - Resolves each track against the catalog; failed lookups drop that track
//
//  2. [BuildEngine.DigestAll] : Batch comment digestion
//     - Worker pool over song refs with a shared rate limiter
//     - Skips songs that already have a digested summary
//     - Records per-song outcomes in processed_songs.jsonl
//
//  3. [BuildEngine.BuildArtifacts] : Embedding artifact build
//     - Chunks digested summaries, embeds them, writes the artifact set
//
//  4. [BuildEngine.SyncIndex] : Artifact → vector index upsert
//     - Loads and verifies the artifact set, upserts, re-counts
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and
// optional data for advanced UI rendering. Updates use select with default to
// prevent blocking.
package tasks
