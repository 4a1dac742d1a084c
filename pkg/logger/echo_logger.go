package logger

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	apperrors "github.com/qraft-Inc/coffeetrace-sub002/pkg/errors"
)

// 요청 로그에서 제외할 경로
var skippedPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// 값이 그대로 기록되면 안 되는 헤더
var maskedHeaders = map[string]struct{}{
	"Authorization": {},
	"Signature":     {},
}

// NewEchoRequestLogger는 Echo 서버를 위한 Request Logger를 생성합니다.
func NewEchoRequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			_, skip := skippedPaths[c.Request().URL.Path]
			return skip
		},
		HandleError:    true,
		LogLatency:     true,
		LogRemoteIP:    true,
		LogMethod:      true,
		LogURI:         true,
		LogRoutePath:   true,
		LogRequestID:   true,
		LogUserAgent:   true,
		LogStatus:      true,
		LogError:       true,
		LogHeaders:     []string{"Content-Type", "Authorization", "Signature"},
		LogQueryParams: []string{"page", "limit", "type"},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("request.remote_ip", v.RemoteIP),
				zap.String("request.method", v.Method),
				zap.String("request.uri", v.URI),
				zap.String("request.route", v.RoutePath),
				zap.String("request.user_agent", v.UserAgent),
				zap.String("request.request_id", v.RequestID),
				zap.Int("response.status", v.Status),
				zap.Duration("response.latency", v.Latency),
			}

			if len(v.Headers) > 0 {
				fields = append(fields, zap.Any("request.headers", maskHeaders(v.Headers)))
			}
			if len(v.QueryParams) > 0 {
				fields = append(fields, zap.Any("request.query_params", v.QueryParams))
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}

			switch {
			case v.Status >= http.StatusInternalServerError:
				logger.Error("Server error", fields...)
			case v.Status >= http.StatusBadRequest:
				logger.Warn("Client error", fields...)
			default:
				logger.Info("Request completed", fields...)
			}
			return nil
		},
	})
}

func maskHeaders(headers map[string][]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, values := range headers {
		if len(values) == 0 {
			continue
		}
		if _, ok := maskedHeaders[k]; ok {
			out[k] = mask(values[0])
			continue
		}
		out[k] = values[0]
	}
	return out
}

func mask(val string) string {
	if len(val) > 15 {
		return val[:10] + "..." + val[len(val)-5:]
	}
	return "[MASKED]"
}

// WithEchoLogger는 Echo 로거와 에러 핸들러를 zap 기반으로 교체합니다.
// 에러 응답 본문은 {"error": ..., "code": ...} 형식입니다.
func WithEchoLogger(e *echo.Echo, logger *zap.Logger) {
	e.Logger = NewEchoZapLogger(logger)

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		status, body := apperrors.ToHTTPResponse(err)

		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
			zap.String("ip", c.RealIP()),
		}
		apperrors.LogError(logger, err, "HTTP error", fields...)

		if c.Response().Committed {
			return
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Error("Failed to send error response", zap.Error(err))
		}
	}
}

// EchoZapLogger는 echo.Logger 인터페이스를 구현한 zap 로거 래퍼입니다.
type EchoZapLogger struct {
	Logger *zap.Logger
	sugar  *zap.SugaredLogger
	prefix string
}

// NewEchoZapLogger는 echo.Logger 구현체를 생성합니다.
func NewEchoZapLogger(logger *zap.Logger) *EchoZapLogger {
	return &EchoZapLogger{Logger: logger, sugar: logger.Sugar()}
}

func (l *EchoZapLogger) Output() io.Writer   { return &zapWriter{logger: l.Logger} }
func (l *EchoZapLogger) SetOutput(io.Writer) {}
func (l *EchoZapLogger) SetHeader(string)    {}
func (l *EchoZapLogger) SetLevel(log.Lvl)    {}
func (l *EchoZapLogger) Prefix() string      { return l.prefix }
func (l *EchoZapLogger) SetPrefix(p string)  { l.prefix = p }

// Level은 zap 코어에서 활성화된 가장 낮은 레벨을 echo 레벨로 반환합니다.
func (l *EchoZapLogger) Level() log.Lvl {
	switch {
	case l.Logger.Core().Enabled(zapcore.DebugLevel):
		return log.DEBUG
	case l.Logger.Core().Enabled(zapcore.InfoLevel):
		return log.INFO
	case l.Logger.Core().Enabled(zapcore.WarnLevel):
		return log.WARN
	default:
		return log.ERROR
	}
}

func (l *EchoZapLogger) Print(i ...interface{})                 { l.sugar.Info(i...) }
func (l *EchoZapLogger) Printf(format string, i ...interface{}) { l.sugar.Infof(format, i...) }
func (l *EchoZapLogger) Printj(j log.JSON)                      { l.Logger.Info("echo", zap.Any("json", j)) }
func (l *EchoZapLogger) Debug(i ...interface{})                 { l.sugar.Debug(i...) }
func (l *EchoZapLogger) Debugf(format string, i ...interface{}) { l.sugar.Debugf(format, i...) }
func (l *EchoZapLogger) Debugj(j log.JSON)                      { l.Logger.Debug("echo", zap.Any("json", j)) }
func (l *EchoZapLogger) Info(i ...interface{})                  { l.sugar.Info(i...) }
func (l *EchoZapLogger) Infof(format string, i ...interface{})  { l.sugar.Infof(format, i...) }
func (l *EchoZapLogger) Infoj(j log.JSON)                       { l.Logger.Info("echo", zap.Any("json", j)) }
func (l *EchoZapLogger) Warn(i ...interface{})                  { l.sugar.Warn(i...) }
func (l *EchoZapLogger) Warnf(format string, i ...interface{})  { l.sugar.Warnf(format, i...) }
func (l *EchoZapLogger) Warnj(j log.JSON)                       { l.Logger.Warn("echo", zap.Any("json", j)) }
func (l *EchoZapLogger) Error(i ...interface{})                 { l.sugar.Error(i...) }
func (l *EchoZapLogger) Errorf(format string, i ...interface{}) { l.sugar.Errorf(format, i...) }
func (l *EchoZapLogger) Errorj(j log.JSON)                      { l.Logger.Error("echo", zap.Any("json", j)) }
func (l *EchoZapLogger) Fatal(i ...interface{})                 { l.sugar.Fatal(i...) }
func (l *EchoZapLogger) Fatalf(format string, i ...interface{}) { l.sugar.Fatalf(format, i...) }
func (l *EchoZapLogger) Fatalj(j log.JSON)                      { l.Logger.Fatal("echo", zap.Any("json", j)) }
func (l *EchoZapLogger) Panic(i ...interface{})                 { l.sugar.Panic(i...) }
func (l *EchoZapLogger) Panicf(format string, i ...interface{}) { l.sugar.Panicf(format, i...) }
func (l *EchoZapLogger) Panicj(j log.JSON)                      { l.Logger.Panic("echo", zap.Any("json", j)) }

// zapWriter는 echo가 직접 쓰는 출력을 zap으로 전달합니다.
type zapWriter struct {
	logger *zap.Logger
}

func (w *zapWriter) Write(p []byte) (n int, err error) {
	w.logger.Info(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
