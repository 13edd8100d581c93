// Package media implements the pipeline stage collaborators that shell out to
// external tools: yt-dlp for downloading, ffmpeg for audio normalization and
// whisper-cli for transcription. It also hosts the retention janitor that
// prunes stage artifacts after their retention window.
package media
