// Package audio provides audio processing utilities.
//
// This package serves as an umbrella for audio-related sub-packages:
//
//   - pcm: PCM audio format math and WAV container handling
//   - resampler: sample rate conversion between device formats
//   - tone: generated notification sounds
package audio
