// Package schema provides the principal schematics for all other packages. It
// defines the plain snapshot types handed between the assignment, ledger and
// migration layers and provides implementations for handling (Unix-based)
// operating system syscalls. None of the types hold references into any user
// interface state; callers build them once and pass them by value or pointer.
package schema
