// Package client contains the client-side building blocks that talk to the
// outside world and to the on-device database.
//
// # Overview
//
//  1. A transport-agnostic contract (Store for per-collection CRUD, Client
//     for everything the application needs from the server).
//  2. HTTPClient, the concrete implementation. It attaches the current
//     bearer credential from an identity.Provider, bounds every call with a
//     timeout and never retries; retry policy belongs to the caller.
//  3. Records, a typed adapter translating domain records to and from the
//     wire JSON of one collection.
//  4. Local persistence bootstrap (InitDatabase, RunMigrations).
//
// # Error Handling
//
// Every failure leaving this package is one of the sentinel kinds, matched
// with errors.Is: ErrUnauthenticated, ErrSyncFailure (ErrTimeout is a
// special case of it), ErrValidation, ErrNotFound. A missing credential
// fails with ErrUnauthenticated before any network I/O.
package client
