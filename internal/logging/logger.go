package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// #region global
var (
	// Logger is the process-wide base logger. Trials never write through it
	// directly; they take a named child from ComponentLogger.
	Logger *zap.SugaredLogger
	// JSONOutput records whether Initialize selected the JSON encoder.
	JSONOutput bool
)

func init() {
	// no-op until Initialize is called, so library users and tests stay quiet
	Logger = zap.NewNop().Sugar()
}

// #endregion global

// #region initialize
// Initialize builds the base logger. jsonOutput selects zap's production JSON
// encoder; otherwise a console encoder is used. level is one of
// debug|info|warn|error and defaults to info.
func Initialize(jsonOutput bool, level string) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}

	var config zap.Config
	if jsonOutput {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		config.DisableStacktrace = true
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	zapLogger, err := config.Build()
	if err != nil {
		return err
	}

	JSONOutput = jsonOutput
	Logger = zapLogger.Sugar()
	return nil
}

// Sync flushes buffered entries. Errors from syncing stderr are ignored.
func Sync() {
	_ = Logger.Sync()
}

func parseLevel(level string) (zapcore.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return zapcore.InfoLevel, err
	}
	return lvl, nil
}

// #endregion initialize

// #region component
// ComponentLogger returns a named logger for a specific component.
//
//	type Engine struct {
//	    log *zap.SugaredLogger
//	}
//
//	e := &Engine{log: logging.ComponentLogger("engine")}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context.
//
//	trialLog := logging.ChildLogger(base, logging.FieldTrialID, id)
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	if parent == nil {
		parent = Logger
	}
	return parent.With(keysAndValues...)
}

// #endregion component
