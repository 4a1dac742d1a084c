package errors

import "net/http"

// CodePair는 프레임워크 간 코드 매핑을 위한 구조체입니다
type CodePair struct {
	HTTPStatus int
	GRPCCode   int
}

// 코드 매핑 테이블
var codeMapping = map[string]CodePair{
	ErrInternal:            {http.StatusInternalServerError, 13}, // INTERNAL
	ErrNotFound:            {http.StatusNotFound, 5},             // NOT_FOUND
	ErrInvalidArgument:     {http.StatusBadRequest, 3},           // INVALID_ARGUMENT
	ErrUnauthenticated:     {http.StatusUnauthorized, 16},        // UNAUTHENTICATED
	ErrUnauthorized:        {http.StatusForbidden, 7},            // PERMISSION_DENIED
	ErrConflict:            {http.StatusConflict, 9},             // FAILED_PRECONDITION
	ErrTimeout:             {http.StatusGatewayTimeout, 4},       // DEADLINE_EXCEEDED
	ErrApprovalRequired:    {http.StatusConflict, 9},             // FAILED_PRECONDITION
	ErrInsufficientBalance: {http.StatusUnprocessableEntity, 9},  // FAILED_PRECONDITION
	ErrExternalDependency:  {http.StatusBadGateway, 14},          // UNAVAILABLE
}

// GetCodeMapping은 특정 에러 코드에 대한 HTTP 및 gRPC 코드 매핑을 반환합니다
func GetCodeMapping(code string) (int, int) {
	if pair, ok := codeMapping[code]; ok {
		return pair.HTTPStatus, pair.GRPCCode
	}
	return http.StatusInternalServerError, 13
}

// IsClientError는 호출자 측 원인의 에러 코드인지 확인합니다
func IsClientError(code string) bool {
	status, _ := GetCodeMapping(code)
	return status >= 400 && status < 500
}
