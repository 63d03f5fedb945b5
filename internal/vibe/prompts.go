package vibe

import (
	"fmt"
	"strings"

	"github.com/desertthunder/moodlist/internal/models"
)

// VibeExtractionPrompt instructs the model to analyze an attached image and
// return a strict VibeExtraction JSON object.
const VibeExtractionPrompt = `You are a perceptive visual analyst and creative storyteller.

**Task**
Given an image, your task is to:
  1. Describe the image precisely. Include the setting, objects, lighting, colors, and any visible people or details. Be objective but vivid.
  2. Imagine the context behind the photo. Based on visual clues, infer what might be happening in or around the scene. What could the subject or environment suggest about the moment, activity, or atmosphere? This can be speculative, but should remain plausible and stay grounded in the image.
  3. Extract the vibes. Distill the emotional or sensory tone of the scene into one to three short phrases (2-5 words each). For each, explain it in 1-3 sentences in a way that naturally aligns with the description and imagined context, capturing the mood or feeling the scene evokes. If only one clear vibe emerges from the image, include just one, but always return it as an array under the "vibes" key.
If the image lacks obvious objects or narrative cues, focus on abstract qualities (like texture, temperature, color balance, light) to derive an impression.

**Output**
Return only the following JSON object, no commentary before or after. Your answer must follow this schema:
{
  "description": "<detailed and objective scene description>",
  "imagination": "<imagined context or narrative about what's happening or implied>",
  "vibes": [
    {
      "label": "<short vibe phrase (2-5 words)>",
      "explanation": "<1-3 sentence explanation of the emotional or sensory tone>"
    },
    ...
  ]
}`

// PlaylistPrompt is the ungrounded playlist generation template. The [INPUT]
// placeholder receives the formatted vibe extraction.
const PlaylistPrompt = `You are a professional playlist curator with deep emotional sensitivity and musical intuition.

**Task**
Your task is to create a 10-12 track playlist that musically expresses the emotional world of a scene described below. Imagine as if you're soundtracking a film based on this image.

You will be given:
  - A detailed description of the image
  - An imagined context of what might be happening in or around the moment
  - One or more vibe labels with explanations

**Requirements**
  - Use the combination of image description, imagined context, and vibes to infer the emotional atmosphere and choose music that resonates naturally with it.
  - Songs should share a consistent genre, instrumentation style, and overall production texture, as if from the same artist or EP.
  - The playlist should follow a gentle energy arc: opening (calm, inviting tracks) - build (slightly more upbeat or emotionally intense) - plateau (the most expressive or energetic part) - taper (slow down, reflective or soft ending).
  - Include a creative playlist name (2-5 words) and a 1-sentence description that emotionally reflects the scene and ties the music together.

**Output Format**
Return only the following JSON object. Do not include any other commentary, markdown, or formatting. Your answer must follow this schema:
{
  "name": "<Playlist title>",
  "description": "<1-sentence emotional summary of the playlist>",
  "tracks": [
    {
      "song": "<Title>",
      "artist": "<Artist>",
      "vibe": "<Short reason why the track fits the mood>"
    },
    ...
  ]
}

Now generate the playlist as described above:

[INPUT]`

// PlaylistPromptRAG is the grounded playlist generation template. The [INPUT]
// placeholder receives the formatted vibe extraction followed by the retrieved
// candidate pool.
const PlaylistPromptRAG = `You are a professional playlist curator with deep emotional sensitivity and musical intuition.

**Task**
Your task is to create a 10-12 track playlist that best fits the scene described below. Imagine as if you're soundtracking this image.

You will be given:
  - A detailed description of the image
  - An imagined context of what might be happening in or around the moment
  - One or more vibe labels with explanations
  - Candidate pool of vibe-similar songs, with the retrieved text chunks that matched the vibe analysis.

**Requirements**
  - Use the combination of image description, imagined context, and vibes to construct a playlist that fully resonates with them.
  - Construct the playlist from the pool of retrieved songs, grounding each choice in the text chunks that represent the corresponding song's vibe.
  - The playlist should follow a gentle energy arc: opening (calm, inviting tracks) - build (slightly more upbeat or emotionally intense) - plateau (the most expressive or energetic part) - taper (slow down, reflective or soft ending).
  - Include a creative playlist name (2-5 words) and a 1-sentence description that emotionally reflects the scene and ties the music together.

**Output Format**
Return only valid JSON that conforms to this schema:
{
  "name": "<Playlist title>",
  "description": "<1-sentence emotional summary of the playlist>",
  "tracks": [
    {
      "song": "<Title>",
      "artist": "<Artist>",
      "vibe": "<Short reason why the track fits the mood>"
    },
    ...
  ]
}

Now generate the playlist as described above:

[INPUT]`

// DigestionPrompt instructs the model to digest raw YouTube comments into a
// structured markdown vibe analysis. The [COMMENTS] placeholder receives the
// joined raw comments.
const DigestionPrompt = `**Role**
You are a cultural and emotional analyst of music.

**Task**
You will be given a set of raw YouTube comments for a song or music video. Your job is to analyze them and do the following:
    1. Identify the vibes of the song that are inferred from the comments. For each vibe, first identify it with 2-3 words, and then explain it why.
    2. List any activities or scenes that commenters associate with the song, either explicitly mentioned or emotionally implied.
    3. Write a summarization of your overall analysis, describing how commenters collectively feel about the song.

**Requirements**
    1. Base your reasoning only on the content of the comments.
    2. If no actions or scenes are mentioned or implied, you may skip the second section.

**Output**
Return your analysis in markdown format, using the following structure:

# Vibe
## <Vibe 1>
<Vibe explanation 1>

## <Vibe 2>
<Vibe explanation 2>
...

# Implied Activities & Scenes
- <Activity or scene 1>
- <Activity or scene 2>
...

# Summarization
<summarization of the analysis>

**Raw YouTube comments**
[COMMENTS]`

const (
	inputPlaceholder    = "[INPUT]"
	commentsPlaceholder = "[COMMENTS]"
	commentSeparator    = "\n\n-----\n\n"
)

// formatVibeInput renders a vibe extraction into the prompt input block.
func formatVibeInput(v *models.VibeExtraction) string {
	lines := make([]string, 0, len(v.Vibes))
	for _, item := range v.Vibes {
		lines = append(lines, fmt.Sprintf("%s - %s", item.Label, item.Explanation))
	}
	return fmt.Sprintf("description:\n%s\n\nimagination:\n%s\n\nvibes:\n%s",
		v.Description, v.Imagination, strings.Join(lines, "\n"))
}

// BuildPlaylistPrompt fills the ungrounded playlist template with the vibe
// extraction.
func BuildPlaylistPrompt(v *models.VibeExtraction) string {
	return strings.Replace(PlaylistPrompt, inputPlaceholder, formatVibeInput(v), 1)
}

// BuildPlaylistPromptRAG fills the grounded template with the vibe extraction
// plus the retrieved candidate pool, one list per flattened query text.
func BuildPlaylistPromptRAG(v *models.VibeExtraction, pool [][]models.ScoredChunk) string {
	var b strings.Builder
	b.WriteString(formatVibeInput(v))
	b.WriteString("\n\ncandidate songs:\n")

	seen := make(map[string]bool)
	for _, hits := range pool {
		for _, hit := range hits {
			key := hit.Artist() + "\x00" + hit.SongName() + "\x00" + hit.Content()
			if seen[key] {
				continue
			}
			seen[key] = true
			fmt.Fprintf(&b, "- %s - %s: %s\n", hit.Artist(), hit.SongName(), hit.Content())
		}
	}

	return strings.Replace(PlaylistPromptRAG, inputPlaceholder, b.String(), 1)
}

// BuildDigestionPrompt fills the digestion template with the scraped comments.
func BuildDigestionPrompt(comments []models.Comment) string {
	texts := make([]string, 0, len(comments))
	for _, c := range comments {
		if c.Text != "" {
			texts = append(texts, c.Text)
		}
	}
	return strings.Replace(DigestionPrompt, commentsPlaceholder, strings.Join(texts, commentSeparator), 1)
}
