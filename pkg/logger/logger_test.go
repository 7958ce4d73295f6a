package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"default", *DefaultConfig(), false},
		{"json stdout", Config{Level: DebugLevel, Format: JSONFormat, Output: StdoutOutput}, false},
		{"upper-case level", Config{Level: "WARN", Format: TextFormat, Output: StderrOutput}, false},
		{"bad level", Config{Level: "loud", Format: TextFormat, Output: StderrOutput}, true},
		{"bad format", Config{Level: InfoLevel, Format: "xml", Output: StderrOutput}, true},
		{"bad output", Config{Level: InfoLevel, Format: TextFormat, Output: "file"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWithComponentKeepsFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf).WithComponent("importer").WithField("import_id", "abc")
	log.Infof("stored %d rows", 3)

	out := buf.String()
	for _, want := range []string{"component=importer", "import_id=abc", "stored 3 rows"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log output, got %q", want, out)
		}
	}
}
