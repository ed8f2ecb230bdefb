package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogType string

const (
	StdErr  LogType = "stderr"
	StdOut  LogType = "stdout"
	LogFile LogType = "logfile"
)

type Config struct {
	Type LogType `mapstructure:"type"`
	File string  `mapstructure:"file"`
	// 0=Fatal, 1=Error, 2=Warn, 3=Info, 4+5=Debug
	Level           int8 `mapstructure:"level"`
	MaxSize         int  `mapstructure:"max-size"`
	NumRotatedFiles int  `mapstructure:"num-rotated-files"`
	// Developer overrides all other settings and logs at debug level with stack traces to stdout.
	Developer bool `mapstructure:"developer"`
}

// Logger embeds a zap.Logger so callers can use it directly and hand out the embedded logger to
// components that expect a *zap.Logger.
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
}

func New(cfg Config) (*Logger, error) {
	if cfg.Developer {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		return &Logger{Logger: l, level: zap.NewAtomicLevelAt(zapcore.DebugLevel)}, nil
	}

	level, err := levelFromInt(cfg.Level)
	if err != nil {
		return nil, err
	}
	atomicLevel := zap.NewAtomicLevelAt(level)

	var sink zapcore.WriteSyncer
	switch cfg.Type {
	case StdErr, "":
		sink = zapcore.Lock(os.Stderr)
	case StdOut:
		sink = zapcore.Lock(os.Stdout)
	case LogFile:
		if cfg.File == "" {
			return nil, fmt.Errorf("log type is %s but no log file was specified", LogFile)
		}
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("unable to create log directory: %w", err)
		}
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.NumRotatedFiles,
		})
	default:
		return nil, fmt.Errorf("unsupported log type: %s", cfg.Type)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	if cfg.Type == LogFile {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, sink, atomicLevel)
	return &Logger{
		Logger: zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)),
		level:  atomicLevel,
	}, nil
}

// SetLevel adjusts the level of an existing logger using the same integer scale as Config.Level.
func (l *Logger) SetLevel(newLevel int8) error {
	level, err := levelFromInt(newLevel)
	if err != nil {
		return err
	}
	l.level.SetLevel(level)
	return nil
}

func levelFromInt(level int8) (zapcore.Level, error) {
	switch level {
	case 0:
		return zapcore.FatalLevel, nil
	case 1:
		return zapcore.ErrorLevel, nil
	case 2:
		return zapcore.WarnLevel, nil
	case 3:
		return zapcore.InfoLevel, nil
	case 4, 5:
		return zapcore.DebugLevel, nil
	default:
		return zapcore.InvalidLevel, fmt.Errorf("invalid log level %d (valid levels are 0-5)", level)
	}
}
