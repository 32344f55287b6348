package logger

// NopLogger implements Logger with no-op methods.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}

func (NopLogger) Debugw(string, map[string]any) {}

func (NopLogger) Infof(string, ...any) {}

func (NopLogger) Warnf(string, ...any) {}

func (NopLogger) Errorf(string, ...any) {}
