// Package container manages the per-session Chrome+noVNC Docker
// containers.
//
// Each browsing session gets its own container. The image exposes three
// fixed ports (VNC 5900, CDP 9333, noVNC 6080) which Docker maps to
// ephemeral host ports; Launch discovers those mappings after start and
// a prober blocks until the Chrome DevTools endpoint answers. Containers
// are labeled with their session ID so the reaper can remove anything
// whose session no longer exists.
package container
