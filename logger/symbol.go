package logger

import (
	"github.com/Somnusochi/auto-novel/sym"
	"go.uber.org/zap"
)

// Symbol-aware wrappers. The symbol goes into a structured field, not the
// message, so logs stay queryable by subsystem:
//
//	logger.AddSakuraSymbol(f.logger).Infow("Job submitted", logger.FieldJobID, id)

// AddSakuraSymbol wraps a logger with the Sakura symbol (桜)
func AddSakuraSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Sakura)
}

// AddDispatchOpenSymbol wraps a logger with the dispatcher start symbol (✿)
func AddDispatchOpenSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.DispatchOpen)
}

// AddDispatchCloseSymbol wraps a logger with the dispatcher stop symbol (❀)
func AddDispatchCloseSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.DispatchClose)
}

// WithSymbol returns the global logger tagged with an arbitrary symbol.
func WithSymbol(symbol string) *zap.SugaredLogger {
	return Logger.With(FieldSymbol, symbol)
}
