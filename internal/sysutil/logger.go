package sysutil

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Log *zap.Logger
var LogSugar *zap.SugaredLogger

// InitLogger 控制台日志, 级别由 EASYHID_LOG_LEVEL 控制 (debug/info/warn/error)
// agent 常开在前台终端, 彩色级别 + 行号方便盯现场
func InitLogger() {
	level := zap.InfoLevel
	if v := os.Getenv("EASYHID_LOG_LEVEL"); v != "" {
		if parsed, err := zapcore.ParseLevel(v); err == nil {
			level = parsed
		}
	}

	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(config.EncoderConfig),
		zapcore.AddSync(os.Stdout),
		level,
	)
	Log = zap.New(core, zap.AddCaller())
	LogSugar = Log.Sugar()
}
