/*
Package session keeps live conversations for hosts that serve many users.

It integrates the in-memory registry of running conversations with per-session locks,
an optional distributed locker for multi-replica deployments, and a snapshot store
so that conversations survive restarts of the host.
*/
package session
