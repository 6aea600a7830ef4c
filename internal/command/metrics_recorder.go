// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import "time"

// unknownCommandLabel keeps arbitrary player input out of metric labels.
const unknownCommandLabel = "unknown"

// metricsRecorder collects the labels of a single dispatch.
type metricsRecorder struct {
	startTime   time.Time
	commandName string
	status      string
}

func newMetricsRecorder() *metricsRecorder {
	return &metricsRecorder{startTime: time.Now(), status: StatusSuccess}
}

// record writes the collected metrics if a command name is set.
func (m *metricsRecorder) record() {
	if m.commandName == "" {
		return
	}
	RecordCommandExecution(m.commandName, m.status)
	RecordCommandDuration(m.commandName, time.Since(m.startTime))
}
