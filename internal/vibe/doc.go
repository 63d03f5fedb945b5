// Package vibe implements the structured generation loop: prompt templates,
// JSON schema validation of model output, bounded retries, and the typed
// extraction and playlist records built from validated payloads.
package vibe
