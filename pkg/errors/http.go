package errors

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ToHTTPStatus는 에러 코드를 HTTP 상태 코드로 변환합니다
func ToHTTPStatus(code string) int {
	httpStatus, _ := GetCodeMapping(code)
	return httpStatus
}

// ToHTTPError는 에러를 Echo HTTP 에러로 변환합니다
func ToHTTPError(err error) *echo.HTTPError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if As(err, &appErr) {
		httpStatus := ToHTTPStatus(appErr.Code())
		return echo.NewHTTPError(httpStatus, appErr.Message())
	}

	// Echo 에러인 경우 그대로 반환
	if echoErr, ok := err.(*echo.HTTPError); ok {
		return echoErr
	}

	// 기본 에러는 500으로 처리
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}

// ErrorBody는 API 에러 응답 본문입니다
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToHTTPResponse는 에러를 상태 코드와 응답 본문으로 변환합니다.
// 내부 에러 메시지는 500 응답에 노출하지 않습니다.
func ToHTTPResponse(err error) (int, ErrorBody) {
	var appErr *AppError
	if As(err, &appErr) {
		status := ToHTTPStatus(appErr.Code())
		msg := appErr.Message()
		if status >= http.StatusInternalServerError && appErr.Code() == ErrInternal {
			msg = "internal server error"
		}
		return status, ErrorBody{Error: msg, Code: appErr.Code()}
	}

	if echoErr, ok := err.(*echo.HTTPError); ok {
		msg, ok := echoErr.Message.(string)
		if !ok {
			msg = http.StatusText(echoErr.Code)
		}
		return echoErr.Code, ErrorBody{Error: msg, Code: httpStatusToCode(echoErr.Code)}
	}

	return http.StatusInternalServerError, ErrorBody{Error: "internal server error", Code: ErrInternal}
}

// httpStatusToCode는 HTTP 상태 코드를 내부 에러 코드로 변환합니다
func httpStatusToCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		return ErrInvalidArgument
	case http.StatusUnauthorized:
		return ErrUnauthenticated
	case http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusConflict:
		return ErrConflict
	case http.StatusGatewayTimeout:
		return ErrTimeout
	case http.StatusBadGateway:
		return ErrExternalDependency
	default:
		return ErrInternal
	}
}
