// Package memory provides process-local implementations of the account
// stores. They are safe for concurrent use and back the "memory"
// reservation backend, local development and tests. All mutations are
// single-key operations under one mutex, matching what the Postgres and
// Redis stores guarantee across processes.
package memory
