package vibe

// JSON schemas enforced on generator output. Both are strict: unknown fields are
// rejected at every level, and length/count minimums match the model constraints.

var vibeExtractionSchemaJSON = []byte(`{
  "type": "object",
  "properties": {
    "description": { "type": "string", "minLength": 1 },
    "imagination": { "type": "string", "minLength": 1 },
    "vibes": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "label": { "type": "string", "minLength": 2, "maxLength": 50 },
          "explanation": { "type": "string", "minLength": 5 }
        },
        "required": ["label", "explanation"],
        "additionalProperties": false
      },
      "minItems": 1
    }
  },
  "required": ["description", "imagination", "vibes"],
  "additionalProperties": false
}`)

var playlistSchemaJSON = []byte(`{
  "type": "object",
  "properties": {
    "name": { "type": "string", "minLength": 1 },
    "description": { "type": "string", "minLength": 5 },
    "tracks": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "properties": {
          "song": { "type": "string", "minLength": 1 },
          "artist": { "type": "string", "minLength": 1 },
          "vibe": { "type": "string", "minLength": 5 }
        },
        "required": ["song", "artist", "vibe"],
        "additionalProperties": false
      }
    }
  },
  "required": ["name", "description", "tracks"],
  "additionalProperties": false
}`)
