/*
Package ports defines the driven ports (interfaces) of tether.

These interfaces decouple the container from the outside world, so the core stays
testable without any UI framework, storage backend or network.

# Key Interfaces

  - Journal: records dispatched actions (in memory, Redis, ...).
  - Scheduler: the host UI framework's way of re-invoking a component's render.
*/
package ports
