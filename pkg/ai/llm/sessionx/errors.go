package sessionx

import (
	"net/http"

	"github.com/parleyhq/parley/pkg/errx"
)

var (
	// Error registry for the session state machine
	errorRegistry = errx.NewRegistry("SESSIONX")

	// ErrPendingToolCall guards the turn order: a tool call the model
	// issued must be answered before new input or a new turn.
	ErrPendingToolCall = errorRegistry.Register(
		"PENDING_TOOL_CALL",
		errx.TypeConflict,
		http.StatusConflict,
		"A tool call is pending; append its function result first",
	)

	// ErrNoPendingToolCall flags a function result nobody asked for
	ErrNoPendingToolCall = errorRegistry.Register(
		"NO_PENDING_TOOL_CALL",
		errx.TypeConflict,
		http.StatusConflict,
		"No tool call is pending for this session",
	)

	// ErrResultMismatch flags a function result whose name does not match
	// the pending tool call
	ErrResultMismatch = errorRegistry.Register(
		"RESULT_MISMATCH",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Function result does not match the pending tool call",
	)

	// ErrNoToolClient fires when the model requests a tool but the
	// session has no tool registry to execute it
	ErrNoToolClient = errorRegistry.Register(
		"NO_TOOL_CLIENT",
		errx.TypeBusiness,
		http.StatusUnprocessableEntity,
		"Model requested a tool but the session has no tools configured",
	)

	// ErrTooManyToolRounds caps runaway call/result loops in Respond
	ErrTooManyToolRounds = errorRegistry.Register(
		"TOO_MANY_TOOL_ROUNDS",
		errx.TypeBusiness,
		http.StatusUnprocessableEntity,
		"Tool round-trip limit exceeded for one turn",
	)
)
