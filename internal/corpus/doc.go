// Package corpus builds the music vibe corpus: scraping listener comments into
// a per-song directory tree, digesting them into markdown summaries, splitting
// summaries into token-bounded chunks, and embedding those chunks into a
// checksummed artifact set ready for indexing.
package corpus
