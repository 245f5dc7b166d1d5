package metrics

// SetWSConnections sets the current number of real-time connections
func (m *Metrics) SetWSConnections(n int) {
	m.safeExecute("SetWSConnections", func() {
		m.WSConnections.Set(float64(n))
	})
}

// RecordDroppedConsumer counts a connection dropped for a full buffer
func (m *Metrics) RecordDroppedConsumer() {
	m.safeExecute("RecordDroppedConsumer", func() {
		m.DroppedConsumersTotal.Inc()
	})
}

// RecordBroadcast counts a room broadcast by event and result
func (m *Metrics) RecordBroadcast(event, result string) {
	m.safeExecute("RecordBroadcast", func() {
		m.BroadcastsTotal.WithLabelValues(event, result).Inc()
	})
}
