package memoryx

import (
	"net/http"

	"github.com/parleyhq/parley/pkg/errx"
)

var (
	// Error registry for conversation memory
	errorRegistry = errx.NewRegistry("MEMORYX")

	// ErrMalformedMessage flags a message with neither content nor a
	// function call. Estimation has no defined cost for it.
	ErrMalformedMessage = errorRegistry.Register(
		"MALFORMED_MESSAGE",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Message carries neither content nor a function call",
	)

	// ErrBudgetUnsatisfiable flags a history whose cost stays above the
	// budget after trimming down to the system message plus the most
	// recent entry. Recoverable: the caller decides whether to reject
	// the input or raise the budget.
	ErrBudgetUnsatisfiable = errorRegistry.Register(
		"BUDGET_UNSATISFIABLE",
		errx.TypeBusiness,
		http.StatusUnprocessableEntity,
		"History cannot be trimmed under the token budget",
	)
)

// IsBudgetUnsatisfiable reports whether err is the budget-unsatisfiable condition
func IsBudgetUnsatisfiable(err error) bool {
	return errx.IsCode(err, ErrBudgetUnsatisfiable)
}
