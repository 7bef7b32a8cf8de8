package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config 日志配置
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output io.Writer
}

var (
	mu        sync.RWMutex
	debugMode = false
	base      zerolog.Logger
)

func init() {
	Init(Config{})
}

// Init 初始化全局 logger，可重复调用
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()

	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	out := cfg.Output
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.DateTime, NoColor: true}
	}

	level := parseLevel(cfg.Level)
	debugMode = level <= zerolog.DebugLevel
	base = zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetDebug 设置是否开启调试模式
func SetDebug(debug bool) {
	mu.Lock()
	defer mu.Unlock()
	debugMode = debug
	if debug {
		base = base.Level(zerolog.DebugLevel)
	} else {
		base = base.Level(zerolog.InfoLevel)
	}
}

// IsDebug 是否处于调试模式
func IsDebug() bool {
	mu.RLock()
	defer mu.RUnlock()
	return debugMode
}

// L 返回底层 zerolog.Logger，用于结构化字段
func L() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// With 返回带组件名的子 logger
func With(component string) zerolog.Logger {
	l := L()
	return l.With().Str("component", component).Logger()
}

// Info 打印信息日志
func Info(format string, v ...interface{}) {
	l := L()
	l.Info().Msgf(format, v...)
}

// Debug 打印调试日志
func Debug(format string, v ...interface{}) {
	l := L()
	l.Debug().Msgf(format, v...)
}

// Warn 打印警告日志
func Warn(format string, v ...interface{}) {
	l := L()
	l.Warn().Msgf(format, v...)
}

// Error 打印错误日志
func Error(format string, v ...interface{}) {
	l := L()
	l.Error().Msgf(format, v...)
}

// Fatal 打印错误日志并退出
func Fatal(format string, v ...interface{}) {
	l := L()
	l.Fatal().Msgf(format, v...)
}
