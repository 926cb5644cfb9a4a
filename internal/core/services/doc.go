// Package services implements the driving port interfaces.
// Services contain the pipeline logic and orchestrate
// calls to driven ports (adapters).
//
// Services are pure Go with no CGO dependencies; OCR, rendering and
// embedding are reached only through driven ports.
package services
