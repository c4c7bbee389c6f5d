// Package ratelimit is per-client token bucket middleware.
//
// Limiters live in process memory and are not shared between instances.
// The server runs two: a loose one in front of every request and a tight
// one in front of the password check, which is the only endpoint worth
// brute forcing. Idle clients are evicted in the background.
package ratelimit
