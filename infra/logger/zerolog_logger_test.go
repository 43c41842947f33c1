package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZerologLoggerMethods(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("test")
	assert.NotNil(t, l)
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestNopLoggerIsSilent(t *testing.T) {
	var l Logger = NopLogger{}
	l.Debugf("debug")
	l.Debugw("debug", nil)
	l.Infof("info")
	l.Warnf("warn")
	l.Errorf("error")
}
