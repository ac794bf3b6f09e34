// Package session orchestrates browsing sessions.
//
// A session ties together one browser container, one agent subprocess,
// and one routing record. The manager walks each session through its
// lifecycle:
//
//  1. Launch the Chrome+noVNC container and wait for CDP readiness
//  2. Mint the stickiness token and register the routing record
//  3. Start the browsing agent against the container's CDP URL
//  4. Stream agent output to the caller, refreshing the route
//  5. Tear down: stop the agent, remove the container, unregister the
//     route, archive the transcript
//
// Teardown runs on every terminal path: completion, timeout, explicit
// stop, client disconnect, and orchestrator shutdown.
package session
