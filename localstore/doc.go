// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package localstore persists small client-side values, such as the local
// participation flag, across restarts of the survey client.
package localstore
