package logger

import (
	"testing"

	"github.com/spf13/viper"
)

func TestNewOptionsDefaultsToStdout(t *testing.T) {
	o, err := NewOptions(viper.New())
	if err != nil {
		t.Fatalf("NewOptions() error = %v", err)
	}
	if !o.Stdout {
		t.Error("Stdout should default to true when no log file is configured")
	}
	if o.Level != "info" {
		t.Errorf("Level = %q, want %q", o.Level, "info")
	}
}

func TestNewOptionsKeepsFileTarget(t *testing.T) {
	v := viper.New()
	v.Set("log.filename", "logs/plexgrid.log")

	o, err := NewOptions(v)
	if err != nil {
		t.Fatalf("NewOptions() error = %v", err)
	}
	if o.Stdout {
		t.Error("a configured file target should not force console output")
	}
	if o.Filename != "logs/plexgrid.log" {
		t.Errorf("Filename = %q", o.Filename)
	}
}

func TestNewLoggerWithDefaults(t *testing.T) {
	o, err := NewOptions(viper.New())
	if err != nil {
		t.Fatalf("NewOptions() error = %v", err)
	}
	log, err := NewLogger(o)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if log == nil {
		t.Fatal("NewLogger() returned nil")
	}
	log.Info("logger up")
}
