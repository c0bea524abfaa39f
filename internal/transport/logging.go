// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"

	applog "filterplay/internal/log"
)

// LoggingTransport writes every message to the debug log. It stands in when
// no network transport is enabled.
type LoggingTransport struct{}

func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs data as JSON, or raw when it does not marshal.
func (lt *LoggingTransport) Send(data any) error {
	if !applog.Enabled(applog.LevelDebug) {
		return nil
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		applog.Debugf("LoggingTransport: Received (%T): %+v (JSON marshal error: %v)", data, data, err)
		return nil
	}
	applog.Debugf("LoggingTransport: %s", jsonData)
	return nil
}

func (lt *LoggingTransport) Close() error {
	applog.Debugf("LoggingTransport: Close called.")
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
