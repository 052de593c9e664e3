package presenter

import "sync"

// MemorySurface keeps the last applied view. It backs headless runs and tests.
type MemorySurface struct {
	mu      sync.Mutex
	view    View
	applied int
}

func (m *MemorySurface) SetProgress(p ProgressSection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.view.Progress = p
}

func (m *MemorySurface) SetScript(s ScriptSection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.view.Script = s
}

func (m *MemorySurface) SetResult(r ResultSection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.view.Result = r
}

func (m *MemorySurface) SetError(e ErrorSection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.view.Error = e
}

// SetSubmitEnabled is the last setter Apply calls, so it counts renders.
func (m *MemorySurface) SetSubmitEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.view.SubmitEnabled = enabled
	m.applied++
}

func (m *MemorySurface) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view
}

func (m *MemorySurface) Renders() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applied
}

type multiSurface []Surface

// Multi fans every section out to all surfaces in order.
func Multi(surfaces ...Surface) Surface {
	return multiSurface(surfaces)
}

func (ms multiSurface) SetProgress(p ProgressSection) {
	for _, s := range ms {
		s.SetProgress(p)
	}
}

func (ms multiSurface) SetScript(sc ScriptSection) {
	for _, s := range ms {
		s.SetScript(sc)
	}
}

func (ms multiSurface) SetResult(r ResultSection) {
	for _, s := range ms {
		s.SetResult(r)
	}
}

func (ms multiSurface) SetError(e ErrorSection) {
	for _, s := range ms {
		s.SetError(e)
	}
}

func (ms multiSurface) SetSubmitEnabled(enabled bool) {
	for _, s := range ms {
		s.SetSubmitEnabled(enabled)
	}
}
