// File: internal/mocks/mocks.go
package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/abspos/internal/browser/style"
	"github.com/xkilldash9x/abspos/internal/config"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

// --- Getters ---

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Layout() config.LayoutConfig {
	args := m.Called()
	return args.Get(0).(config.LayoutConfig)
}

func (m *MockConfig) Timers() config.TimersConfig {
	args := m.Called()
	return args.Get(0).(config.TimersConfig)
}

func (m *MockConfig) Script() config.ScriptConfig {
	args := m.Called()
	return args.Get(0).(config.ScriptConfig)
}

// --- Setters ---

func (m *MockConfig) SetLayoutViewport(width, height float64) { m.Called(width, height) }
func (m *MockConfig) SetLayoutDirection(dir string)           { m.Called(dir) }
func (m *MockConfig) SetScriptTimeout(d time.Duration)        { m.Called(d) }

var _ config.Interface = (*MockConfig)(nil)

// -- Text Measurer Mock --

// MockMeasurer mocks style.Measurer so layout tests can pin text metrics and
// count how often text is measured.
type MockMeasurer struct {
	mock.Mock
}

func (m *MockMeasurer) MeasureText(text string, fontSize float64) (float64, float64) {
	args := m.Called(text, fontSize)
	return args.Get(0).(float64), args.Get(1).(float64)
}

var _ style.Measurer = (*MockMeasurer)(nil)
