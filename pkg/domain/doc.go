/*
Package domain contains the core data model of the Talisman engine.

It defines the conversation entities (Turns, the Dialogue State, Generation Jobs and saved
Consultations) together with the engine's sentinel errors and lifecycle hooks. This package
is kept pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Turn: one delivered message of the transcript, authored by the user or the system.
  - DialogueState: the step of the guided dialogue plus the concern path selected so far.
  - GenerationJob: the polled, asynchronous talisman (image) generation request.
  - Consultation: a finished transcript handed to a consultation store.
  - Snapshot: a serializable view of a live conversation, used by hosts and stores.
*/
package domain
