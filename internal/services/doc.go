// Package services defines interfaces for the external backends the pipeline
// depends on and implements them for OpenAI, Spotify, YouTube, and SearxNG.
//
// # Interfaces
//
// Each backend role is a small interface so the pipeline and tests can swap
// implementations freely:
//   - [Generator] : one-shot text or multimodal generation
//   - [Embedder] : order-preserving batch text embeddings
//   - [Catalog] : track resolution against a music catalog
//   - [CommentSource] : listener comment scraping for corpus digestion
//   - [Searcher] : web search and page text extraction for enrichment
//
// # OpenAI Implementation
//
// [OpenAIService] implements both [Generator] and [Embedder] on the official
// client. Images ride along as base64 data URLs. A Generate call is a single
// request; the retry engine decides whether to call again.
//
// # Spotify Implementation
//
// [SpotifyService] implements [Catalog] with the client credentials grant.
// Search lookups need no user consent, so there is no authorization flow and
// no token storage; [clientcredentials.Config] renews the app token.
//
// # YouTube Implementation
//
// [YouTubeService] implements [CommentSource] on the Data API v3 with a plain
// API key, walking the top search results and collecting top-level comments
// until the per-song budget is met.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrMissingCredentials] : constructor given empty credentials
//   - [shared.ErrAPIRequest] : HTTP request failed or non-2xx status
//   - [shared.ErrGenerationFailed] : generation backend failure
//   - [shared.ErrEmbeddingFailed] : embedding backend failure or count mismatch
//   - [shared.ErrTrackNotFound] : catalog search returned no hits
//   - [shared.ErrNoComments] : no videos or no comments for a song
package services
