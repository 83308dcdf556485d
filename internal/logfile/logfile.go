// Package logfile appends raw protocol lines to plain log files, one for
// the call monitor feed and one for blocker decisions.
package logfile

import (
	"log"
	"os"
	"path/filepath"
	"time"
)

// LineLogger appends one newline-terminated line to a sink.
type LineLogger interface {
	LogLine(line string)
}

// Anonymizer rewrites a line before it is written, masking phone numbers.
type Anonymizer func(string) string

// FileLogger writes lines to <folder>/<prefix>.log, or to a per-day
// <prefix>-YYYYMMDD.log when daily rotation is on.
type FileLogger struct {
	folder string
	prefix string
	daily  bool
	anon   Anonymizer

	now func() time.Time
}

// NewFile creates the log folder if needed. anon may be nil.
func NewFile(folder, prefix string, daily bool, anon Anonymizer) (*FileLogger, error) {
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, err
	}
	return &FileLogger{folder: folder, prefix: prefix, daily: daily, anon: anon, now: time.Now}, nil
}

// LogLine appends the line. Write failures are logged, not returned: losing
// a log line must never stall the event stream.
func (f *FileLogger) LogLine(line string) {
	if f.anon != nil {
		line = f.anon(line)
	}
	file, err := os.OpenFile(f.path(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("open %s: %v", f.path(), err)
		return
	}
	defer file.Close()
	if _, err := file.WriteString(line); err != nil {
		log.Printf("write %s: %v", f.path(), err)
	}
}

func (f *FileLogger) path() string {
	if f.daily {
		return filepath.Join(f.folder, f.prefix+"-"+f.now().Format("20060102")+".log")
	}
	return filepath.Join(f.folder, f.prefix+".log")
}
