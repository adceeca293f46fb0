/*
Package ports defines the driven ports (interfaces) of the Talisman engine.

These interfaces decouple the conversation core from the external collaborators it talks to,
allowing the engine to run against HTTP backends, offline fakes, or any storage backend.

# Key Interfaces

  - InferenceBackend: turns a concern plus a user profile into a multi-paragraph fortune.
  - ArtifactBackend: submits talisman generation jobs and reports their status.
  - ConsultationStore: persists finished consultations.
  - SnapshotStore: persists live conversation snapshots.
  - DistributedLocker: provides distributed locking for concurrent session access.
*/
package ports
