/*
Package domain contains the framework-free vocabulary shared by the tether packages.

It holds no generic code and no I/O, so adapters (journals, metrics, HTTP) can depend
on it without pulling in the container runtime.

# Key Entities

  - Fields: a partial state patch keyed by field name.
  - ActionRecord: the serializable tag of a dispatched action and its outcome.
  - LifecycleHooks: dispatch, commit, notify and error callbacks.
  - ConfigurationError, ActionError, SubscriberError: the error taxonomy.
*/
package domain
