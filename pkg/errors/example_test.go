// Package errors provides examples of structured error handling in schemagit.
package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/schemagit/pkg/errors"
)

// Example demonstrates basic error creation and wrapping.
func Example() {
	err := errors.New(errors.ErrorTypeConnection, "failed to open session").
		WithDetail("slot", 3)

	fmt.Println(err.Error())

	// Output:
	// connection: failed to open session
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeQuery, "failed to read definition").
		WithDetail("object_type", "PACKAGE").
		WithDetail("shard", 1)

	if errors.IsType(err, errors.ErrorTypeQuery) {
		fmt.Println("query error")
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		fmt.Println("cause preserved")
	}
	shard, _ := errors.Detail(err, "shard")
	fmt.Println("shard", shard)

	// Output:
	// query error
	// cause preserved
	// shard 1
}

// ExampleExitCode shows how failures map onto process exit status.
func ExampleExitCode() {
	fmt.Println(errors.ExitCode(nil))
	fmt.Println(errors.ExitCode(errors.New(errors.ErrorTypeConfig, "unknown object type")))

	// Output:
	// 0
	// 1
}
