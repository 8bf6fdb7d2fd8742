package toolx

import (
	"net/http"

	"github.com/parleyhq/parley/pkg/errx"
)

var (
	// Error registry for tool execution
	errorRegistry = errx.NewRegistry("TOOLX")

	// ErrUnknownTool flags a call request for a tool nobody registered
	ErrUnknownTool = errorRegistry.Register(
		"UNKNOWN_TOOL",
		errx.TypeNotFound,
		http.StatusNotFound,
		"Requested tool is not registered",
	)

	// ErrExecutionFailed flags a tool that returned an error
	ErrExecutionFailed = errorRegistry.Register(
		"EXECUTION_FAILED",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Tool execution failed",
	)

	// ErrEncodeResult flags a tool return value that cannot be serialized
	ErrEncodeResult = errorRegistry.Register(
		"ENCODE_RESULT",
		errx.TypeInternal,
		http.StatusInternalServerError,
		"Tool result cannot be serialized to JSON",
	)
)
