// Package logger는 서비스 공통 zap 로거 구성과 프레임워크 어댑터를 제공합니다.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config 로거 설정
type Config struct {
	// Level 로그 레벨 (debug, info, warn, error, dpanic, panic, fatal)
	Level string `yaml:"level"`
	// Format 로그 포맷 (json, console)
	Format string `yaml:"format"`
	// Output 로그 출력 대상 (stdout, stderr, file)
	Output string `yaml:"output"`
	// FilePath 파일로 출력할 경우 파일 경로
	FilePath string `yaml:"file_path"`
	// Development 개발 모드 여부
	Development bool `yaml:"development"`

	// 파일 로테이션 설정 (Output이 file일 때만 사용)
	MaxSizeMB  int  `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days"`
	Compress   bool `yaml:"compress"`
}

// ParseLevel은 문자열 레벨을 zapcore 레벨로 변환합니다. 알 수 없는 값은 info입니다.
func ParseLevel(level string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// NewZapLogger 새로운 zap 로거를 생성합니다.
func NewZapLogger(config Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(ParseLevel(config.Level))

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "@timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.LevelKey = "log.level"
	encoderConfig.MessageKey = "message"
	encoderConfig.CallerKey = "caller"

	if config.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var encoder zapcore.Encoder
	if config.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, newWriteSyncer(config), level)
	logger := zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel))

	if config.Development {
		logger = logger.WithOptions(zap.AddCaller())
	}

	return logger, nil
}

// newWriteSyncer는 출력 대상을 결정합니다. 파일 출력은 lumberjack으로 로테이션합니다.
func newWriteSyncer(config Config) zapcore.WriteSyncer {
	switch config.Output {
	case "stderr":
		return zapcore.AddSync(os.Stderr)
	case "file":
		if config.FilePath == "" {
			return zapcore.AddSync(os.Stdout)
		}
		rotator := &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    valueOr(config.MaxSizeMB, 100),
			MaxBackups: valueOr(config.MaxBackups, 3),
			MaxAge:     valueOr(config.MaxAgeDays, 28),
			Compress:   config.Compress,
		}
		return zapcore.AddSync(rotator)
	default:
		return zapcore.AddSync(os.Stdout)
	}
}

func valueOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

// DefaultZapLogger 기본 설정으로 zap 로거를 생성합니다.
func DefaultZapLogger() *zap.Logger {
	logger, err := NewZapLogger(Config{Level: "info", Format: "json", Output: "stdout"})
	if err != nil {
		return zap.NewExample()
	}
	return logger
}
