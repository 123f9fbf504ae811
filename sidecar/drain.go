package sidecar

import (
	"strings"

	"go.uber.org/zap"
)

// Drain consumes events until the stream closes or the sidecar terminates.
// Events are handled one at a time in arrival order. On EventTerminated the
// sequencer is invoked once and Drain returns without reading further.
func Drain(events <-chan Event, seq Sequencer, log *zap.Logger, sinks ...LineSink) {
	for ev := range events {
		switch ev.Kind {
		case EventStdout, EventStderr:
			line := strings.TrimRight(ev.Line, "\r\n")
			log.Info(line, zap.String("stream", ev.Kind.String()))
			for _, s := range sinks {
				s.Line(ev.Kind, line)
			}
		case EventError:
			log.Error("sidecar error", zap.Error(ev.Err))
		case EventTerminated:
			var exit ExitPayload
			if ev.Exit != nil {
				exit = *ev.Exit
			}
			log.Info("sidecar terminated",
				zap.Int("code", exit.Code),
				zap.String("signal", exit.Signal))
			seq.Terminate(ReasonChildTerminated)
			return
		}
	}
}
