// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package app is the survey client's state controller.

A Controller holds the party collection, the loading flag, the local
participation flag, the current view and the admin login buffer. Renderers
read it through Snapshot and wait on Changes.

# Lifecycle

	ctrl, err := app.New(app.Options{
		Backend:   client,
		Subscribe: subscribe,
		Store:     store,
		Secret:    app.StaticSecret(secret),
	})
	err = ctrl.Start(ctx) // initial load, then subscription + poll timer
	defer ctrl.Close()    // releases both and waits for their refreshes

Both refresh sources call the same Refresh. Overlapping refreshes are
allowed and the last one to finish wins.

# Voting

Vote checks the local flag first and never reaches the network when it is
set. A successful vote bumps the party's count by one locally, persists the
flag and opens the results view. An already-voted answer from the backend
only sets the flag. Any other failure leaves the flag alone and refreshes.

# Views

	voting          --OpenResults-->      results  (voted, or no parties)
	voting          --OpenAdminLogin-->   admin-login (no parties)
	admin-login     --SubmitAdminLogin--> admin-dashboard (secret matches)
	admin-dashboard --Logout-->           voting
	any             --Navigate-->         voting | results
*/
package app
