package logging

import (
	"go.uber.org/zap"
)

// Init builds the process logger and installs it as the zap global.
// The returned function flushes buffered entries and should be deferred by main.
func Init(env string) (func(), error) {
	var (
		logger *zap.Logger
		err    error
	)
	if env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}

	restore := zap.ReplaceGlobals(logger)
	return func() {
		_ = logger.Sync()
		restore()
	}, nil
}
