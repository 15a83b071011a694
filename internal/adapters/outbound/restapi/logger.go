package restapi

import (
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"
)

// hclogAdapter forwards resty's internal logging to an hclog.Logger.
type hclogAdapter struct {
	logger hclog.Logger
}

func newHclogAdapter(logger hclog.Logger) resty.Logger {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &hclogAdapter{logger: logger}
}

func (a *hclogAdapter) Errorf(format string, v ...interface{}) {
	a.logger.Error(fmt.Sprintf(format, v...))
}

func (a *hclogAdapter) Warnf(format string, v ...interface{}) {
	a.logger.Warn(fmt.Sprintf(format, v...))
}

func (a *hclogAdapter) Debugf(format string, v ...interface{}) {
	a.logger.Debug(fmt.Sprintf(format, v...))
}
