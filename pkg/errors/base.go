package errors

import "net/http"

// ============================================================================
// Common Errors (Module: 00)
// ============================================================================

var (
	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = Register(&Errno{
		Code:    MakeCode(ModuleCommon, CategoryRequest, 0),
		HTTP:    http.StatusBadRequest,
		Message: "Bad request",
	})

	// ErrInvalidParam indicates an invalid parameter.
	ErrInvalidParam = Register(&Errno{
		Code:    MakeCode(ModuleCommon, CategoryRequest, 1),
		HTTP:    http.StatusBadRequest,
		Message: "Invalid parameter",
	})

	// ErrNotFound indicates a missing resource.
	ErrNotFound = Register(&Errno{
		Code:    MakeCode(ModuleCommon, CategoryNotFound, 0),
		HTTP:    http.StatusNotFound,
		Message: "Resource not found",
	})

	// ErrInternal indicates an unclassified internal error.
	ErrInternal = Register(&Errno{
		Code:    MakeCode(ModuleCommon, CategoryInternal, 0),
		HTTP:    http.StatusInternalServerError,
		Message: "Internal server error",
	})

	// ErrTimeout indicates the operation exceeded its deadline.
	ErrTimeout = Register(&Errno{
		Code:    MakeCode(ModuleCommon, CategoryInternal, 1),
		HTTP:    http.StatusRequestTimeout,
		Message: "Operation timed out",
	})
)

// ============================================================================
// Knowledge-Base Core Errors (Module: 10)
// ============================================================================

var (
	// ErrInvalidConfiguration indicates invalid chunking, dimension or index
	// configuration. Fatal at startup, never a per-request condition.
	ErrInvalidConfiguration = Register(&Errno{
		Code:    MakeCode(ModuleCore, CategoryConfig, 0),
		HTTP:    http.StatusInternalServerError,
		Message: "Invalid configuration",
	})

	// ErrNoDocumentsIndexed indicates the index holds zero entries. This is a
	// normal, expected condition for a fresh deployment, not a fault.
	ErrNoDocumentsIndexed = Register(&Errno{
		Code:    MakeCode(ModuleCore, CategoryNotFound, 0),
		HTTP:    http.StatusNotFound,
		Message: "No documents have been indexed yet",
	})

	// ErrDocumentEmpty indicates the ingested document produced no chunks.
	ErrDocumentEmpty = Register(&Errno{
		Code:    MakeCode(ModuleCore, CategoryRequest, 0),
		HTTP:    http.StatusBadRequest,
		Message: "Document contains no indexable text",
	})
)

// ============================================================================
// Provider Errors (Module: 90)
// ============================================================================

var (
	// ErrEmbeddingUnavailable indicates the embedding provider could not be
	// reached or failed. Retryable by the caller; never auto-retried here.
	ErrEmbeddingUnavailable = Register(&Errno{
		Code:    MakeCode(ModuleProvider, CategoryUpstream, 0),
		HTTP:    http.StatusServiceUnavailable,
		Message: "Embedding provider unavailable",
	})

	// ErrGenerationUnavailable indicates the generation provider failed. The
	// answer path degrades to a verbatim excerpt instead of failing.
	ErrGenerationUnavailable = Register(&Errno{
		Code:    MakeCode(ModuleProvider, CategoryUpstream, 1),
		HTTP:    http.StatusServiceUnavailable,
		Message: "Generation provider unavailable",
	})
)
