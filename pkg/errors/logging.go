package errors

import (
	"go.uber.org/zap"
)

// LogError는 에러를 구조화된 로그로 기록합니다.
// 클라이언트 원인 에러(4xx)는 Warn 레벨로 기록합니다.
func LogError(logger *zap.Logger, err error, msg string, fields ...zap.Field) {
	if err == nil {
		return
	}

	allFields := make([]zap.Field, 0, len(fields)+2)
	allFields = append(allFields, zap.Error(err))

	// AppError에서 추가 정보 추출
	code := ErrInternal
	var appErr *AppError
	if As(err, &appErr) {
		code = appErr.Code()
		allFields = append(allFields, zap.String("error_code", code))
	}

	allFields = append(allFields, fields...)

	if IsClientError(code) {
		logger.Warn(msg, allFields...)
		return
	}
	logger.Error(msg, allFields...)
}
