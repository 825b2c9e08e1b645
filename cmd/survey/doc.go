// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Command survey is the terminal client for the party survey.
//
// Usage:
//
//	survey [--api URL] [--state FILE] [--poll 5s]
//	survey parties
//	survey admin add --name NAME --code CODE [--symbol S] [--color #rrggbb] [--image URL]
//	survey admin update <id|code> [flags]
//	survey admin remove <id|code>
//	survey admin reset
//
// Settings fall back to SURVEY_API_URL, ADMIN_SECRET, SURVEY_STATE_FILE,
// SURVEY_LOG_FILE and SURVEY_POLL_INTERVAL, also read from a .env file.
// Logs are written to the log file so they never disturb the UI.
package main
