// Package services defines the shared error taxonomy for build failures.
//
// Every failure that crosses a component boundary is tagged with one of the
// exported sentinel errors so callers can classify it with errors.Is without
// parsing messages. The build pipeline never retries; classification exists
// for reporting, not recovery.
package services
