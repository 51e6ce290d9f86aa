// Package session owns the browser session used for one crawl round.
//
// A Manager launches a browser, dresses the page (user agent, viewport,
// cookies), opens the edition landing page or search page, expands search
// results, and probes for the paywall "Continue" control. The probe result
// is recorded but never invalidates the session.
//
// Re-negotiation is rate limited by a cooldown so that a failing site is not
// hammered with browser launches.
package session
