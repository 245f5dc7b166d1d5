package metrics

// IncrementProjectCreated increments project creation counter
func (m *Metrics) IncrementProjectCreated() {
	m.safeExecute("IncrementProjectCreated", func() {
		m.ProjectCreatedTotal.Inc()
	})
}

// IncrementScheduleUpdated increments the schedule row update counter
func (m *Metrics) IncrementScheduleUpdated() {
	m.safeExecute("IncrementScheduleUpdated", func() {
		m.ScheduleUpdatesTotal.Inc()
	})
}

// IncrementCommentUpserted increments the comment upsert counter
func (m *Metrics) IncrementCommentUpserted() {
	m.safeExecute("IncrementCommentUpserted", func() {
		m.CommentUpsertsTotal.Inc()
	})
}

// AddImportedRows adds n imported schedule rows
func (m *Metrics) AddImportedRows(n int) {
	m.safeExecute("AddImportedRows", func() {
		m.ImportedRowsTotal.Add(float64(n))
	})
}

// AddPagesBackfilled adds n pages created by the backfill job
func (m *Metrics) AddPagesBackfilled(n int64) {
	m.safeExecute("AddPagesBackfilled", func() {
		m.PagesBackfilledTotal.Add(float64(n))
	})
}

// SetProjectsTotal sets total projects gauge
func (m *Metrics) SetProjectsTotal(count int64) {
	m.safeExecute("SetProjectsTotal", func() {
		m.ProjectsTotal.Set(float64(count))
	})
}

// SetSchedulesTotal sets total schedule rows gauge
func (m *Metrics) SetSchedulesTotal(count int64) {
	m.safeExecute("SetSchedulesTotal", func() {
		m.SchedulesTotal.Set(float64(count))
	})
}

// SetCommentPagesTotal sets total comment pages gauge
func (m *Metrics) SetCommentPagesTotal(count int64) {
	m.safeExecute("SetCommentPagesTotal", func() {
		m.CommentPagesTotal.Set(float64(count))
	})
}
