package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAuthorAccessOnly  ErrCode = "AUTHOR_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam / session ────────────────────────────────────────────────
	ErrExamNotPublished ErrCode = "EXAM_NOT_PUBLISHED"
	ErrExamNotDraft     ErrCode = "EXAM_NOT_DRAFT"
	ErrNotExamAuthor    ErrCode = "NOT_EXAM_AUTHOR"
	ErrNoProblems       ErrCode = "NO_PROBLEMS"
	ErrNoActiveSession  ErrCode = "NO_ACTIVE_SESSION"
	ErrSessionCompleted ErrCode = "SESSION_COMPLETED"
	ErrReportNotReady   ErrCode = "REPORT_NOT_READY"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrAuthorAccessOnly:
		return "This resource is restricted to exam authors."
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "The ID format is invalid."
	case ErrInvalidPayload:
		return "The request payload is invalid."
	case ErrNotFound:
		return "The resource was not found."
	case ErrConflict:
		return "The resource already exists."
	case ErrExamNotPublished:
		return "This exam has not been published."
	case ErrExamNotDraft:
		return "This exam is not in DRAFT status."
	case ErrNotExamAuthor:
		return "You are not the author of this exam."
	case ErrNoProblems:
		return "This exam has no problems."
	case ErrNoActiveSession:
		return "There is no active session for this exam."
	case ErrSessionCompleted:
		return "This exam session has already been completed."
	case ErrReportNotReady:
		return "The report for this exam is not available yet."
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
