// Package types defines the story and criteria entities, the repository and
// store interfaces the SQLite backend implements, the request shapes the
// services accept, and the error kinds services report.
package types
