package interfaces

type ILogger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})

	Named(name string) ILogger
	With(args ...interface{}) ILogger
	Sync() error
}
