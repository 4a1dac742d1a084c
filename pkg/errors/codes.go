package errors

// 공통 에러 코드 정의
const (
	// 일반적인 에러 코드
	ErrInternal        = "INTERNAL"
	ErrNotFound        = "NOT_FOUND"
	ErrInvalidArgument = "INVALID_ARGUMENT"
	ErrUnauthenticated = "UNAUTHENTICATED"
	ErrUnauthorized    = "PERMISSION_DENIED"
	ErrConflict        = "CONFLICT"
	ErrTimeout         = "TIMEOUT"

	// 정산 도메인 에러 코드
	ErrApprovalRequired    = "APPROVAL_REQUIRED"
	ErrInsufficientBalance = "INSUFFICIENT_BALANCE"
	ErrExternalDependency  = "EXTERNAL_DEPENDENCY"
)
