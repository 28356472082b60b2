// Package users provides the SQLite-backed account repository of the local
// credential database. The users table carries the single-owner partial
// unique index; this package never deletes rows.
package users
