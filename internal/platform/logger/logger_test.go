package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNew_LevelAndNodeField(t *testing.T) {
	l := New("cellgov-service", "well-cell", "debug")
	if l.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("level: %s", l.GetLevel())
	}

	// An unparseable level must not break startup.
	l = New("cellgov-service", "well-cell", "chatty")
	if l.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("fallback level: %s", l.GetLevel())
	}
}
