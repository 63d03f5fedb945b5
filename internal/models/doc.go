// Package models defines domain entities and persistence interfaces for the moodlist service.
//
// The package contains three categories of types:
//
// 1. Structured generation output: records parsed at the validation boundary and
// never re-interpreted as loose maps afterward
//   - [VibeExtraction] / [VibeItem] : mood analysis of an uploaded image
//   - [Playlist] / [Track] : generated playlist, optionally catalog-enriched
//
// 2. Corpus records: the offline pipeline's units of work
//   - [Comment] : one scraped YouTube comment with provenance
//   - [Chunk] : a bounded span of digested text, the unit of embedding and retrieval
//   - [ChunkEmbedding] : embedded chunk owning the (id, vector, payload) triple
//   - [Manifest] / [FileStat] : integrity record for one artifact build
//   - [SongMeta] / [DigestionRecord] : per-song provenance in the corpus tree
//
// 3. Persistent entities: database-backed models with full lifecycle management
//   - [Interaction] : one generated playlist with its session and image reference
//
// Persistent entities implement the [Model] interface providing ID generation,
// timestamps, and validation. The [Repository] interface defines standard CRUD
// operations for database access.
package models
