// Package ui renders CLI output with a shared lipgloss palette.
//
// The renderers format the main result shapes for terminal display:
//   - [RenderVibe] : Structured mood analysis of an image
//   - [RenderPlaylist] : Generated playlist with per-track resolution status
//   - [RenderHits] : Retrieval results, one block per query
//   - [RenderDigestRun] : Batch digestion summary with failure details
//
// Colors live in a single [Palette] so commands stay visually consistent.
package ui
