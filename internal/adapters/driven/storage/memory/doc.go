// Package memory provides in-memory implementations of the storage ports.
// They back tests and dry runs; nothing is persisted.
package memory
