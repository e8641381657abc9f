// Package backend provides model-checking backends for the driver.
//
// Process runs an external checker once per harness. Scripted answers from
// an outcome table and is used for dry runs and deterministic tests.
package backend
