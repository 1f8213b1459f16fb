package serialport

import (
	"io"
	"sync"
)

// MockPort is an in-memory Port for tests and dry runs
type MockPort struct {
	mu          sync.Mutex
	ReadData    []byte
	WrittenData []byte
	WriteError  error
	Closed      bool
}

func (m *MockPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.ReadData) == 0 {
		return 0, io.EOF
	}
	n := copy(p, m.ReadData)
	m.ReadData = m.ReadData[n:]
	return n, nil
}

func (m *MockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteError != nil {
		return 0, m.WriteError
	}
	m.WrittenData = append(m.WrittenData, p...)
	return len(p), nil
}

func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Written returns a copy of everything written so far
func (m *MockPort) Written() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.WrittenData)
}
