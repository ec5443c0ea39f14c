package metrics

// 连接结果标签
const (
	ConnectOK    = "ok"
	ConnectQuota = "quota_exceeded"
)

// SetHubSizes 更新连接数与在线用户数
func (m *Metrics) SetHubSizes(sessions, users int) {
	if m == nil {
		return
	}
	m.safeExecute("SetHubSizes", func() {
		m.SessionsActive.Set(float64(sessions))
		m.UsersOnline.Set(float64(users))
	})
}

func (m *Metrics) RecordConnect(result string) {
	if m == nil {
		return
	}
	m.safeExecute("RecordConnect", func() {
		m.ConnectsTotal.WithLabelValues(result).Inc()
	})
}

func (m *Metrics) RecordEviction() {
	if m == nil {
		return
	}
	m.safeExecute("RecordEviction", func() {
		m.EvictionsTotal.Inc()
	})
}

func (m *Metrics) RecordBroadcast(delivered int) {
	if m == nil {
		return
	}
	m.safeExecute("RecordBroadcast", func() {
		m.BroadcastFanout.Observe(float64(delivered))
	})
}

func (m *Metrics) RecordEvent(name string) {
	if m == nil {
		return
	}
	m.safeExecute("RecordEvent", func() {
		m.EventsTotal.WithLabelValues(name).Inc()
	})
}

func (m *Metrics) RecordExportError() {
	if m == nil {
		return
	}
	m.safeExecute("RecordExportError", func() {
		m.ExportErrorsTotal.Inc()
	})
}

// RecordUnreadLookup hit=false 表示从数据库重算
func (m *Metrics) RecordUnreadLookup(hit bool) {
	if m == nil {
		return
	}
	m.safeExecute("RecordUnreadLookup", func() {
		if hit {
			m.UnreadCacheHits.Inc()
		} else {
			m.UnreadCacheMisses.Inc()
		}
	})
}

func (m *Metrics) RecordSelfHeal(reason string) {
	if m == nil {
		return
	}
	m.safeExecute("RecordSelfHeal", func() {
		m.UnreadSelfHeals.WithLabelValues(reason).Inc()
	})
}
