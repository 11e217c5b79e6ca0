// Package enums provides type-safe enumeration types for the web interface.
//
// The unexported integer types below are the input for go-pkgz/enum generator, it makes the exported
// types (Theme, BatchStatus) with String, Parse*, text and sql marshaling in *_enum.go files.
//
// To regenerate the enum types after modifications:
//
//	go generate ./app/web/enums
package enums

//go:generate go run github.com/go-pkgz/enum@latest -type theme -lower
//go:generate go run github.com/go-pkgz/enum@latest -type batchStatus -lower

// theme is the UI color scheme
type theme int

const (
	themeDark theme = iota
	themeLight
)

// batchStatus is the state of the last generation batch of a session
type batchStatus int

const (
	batchStatusIdle batchStatus = iota
	batchStatusRunning
	batchStatusDone
	batchStatusFailed
)
