// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package notify

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/docmirror/internal/logging"
)

// serverLogger routes nats-server output through zerolog.
type serverLogger struct {
	log zerolog.Logger
}

func newServerLogger() *serverLogger {
	return &serverLogger{log: logging.WithComponent("nats-server")}
}

func (l *serverLogger) Noticef(format string, v ...any) {
	l.log.Info().Msg(fmt.Sprintf(format, v...))
}

func (l *serverLogger) Warnf(format string, v ...any) {
	l.log.Warn().Msg(fmt.Sprintf(format, v...))
}

func (l *serverLogger) Fatalf(format string, v ...any) {
	l.log.Error().Msg(fmt.Sprintf(format, v...))
}

func (l *serverLogger) Errorf(format string, v ...any) {
	l.log.Error().Msg(fmt.Sprintf(format, v...))
}

func (l *serverLogger) Debugf(format string, v ...any) {
	l.log.Debug().Msg(fmt.Sprintf(format, v...))
}

func (l *serverLogger) Tracef(format string, v ...any) {
	l.log.Trace().Msg(fmt.Sprintf(format, v...))
}
