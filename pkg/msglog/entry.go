package msglog

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// TimeFormat is the layout used both for display and for the entry checksum.
const TimeFormat = "2006-01-02 15:04:05"

// Level is the severity of a log entry.
type Level uint8

const (
	Debug Level = iota
	Info
	Warn
	Error
)

var levelNames = map[Level]string{
	Debug: "DEBUG",
	Info:  "INFO",
	Warn:  "WARN",
	Error: "ERROR",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Level(%d)", uint8(l))
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	lvl, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = lvl
	return nil
}

// ParseLevel maps a level name (case-insensitive) to a Level.
func ParseLevel(s string) (Level, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "WARNING" {
		return Warn, nil
	}
	for lvl, name := range levelNames {
		if name == s {
			return lvl, nil
		}
	}
	return Debug, fmt.Errorf("unknown log level %q", s)
}

// Entry is one message shown in the panel's message log.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
}

// NewEntry builds an entry with its ID already computed.
func NewEntry(ts time.Time, level Level, msg string) Entry {
	e := Entry{Timestamp: ts, Level: level, Message: msg}
	e.ID = Checksum(ts, level, msg)
	return e
}

// Checksum derives the stable identifier of an entry from its three fields.
func Checksum(ts time.Time, level Level, msg string) string {
	line := strings.Join([]string{ts.Format(TimeFormat), level.String(), msg}, "##")
	sum := sha512.Sum512([]byte(line))
	return hex.EncodeToString(sum[:])
}

// Row is the display form of an entry.
type Row struct {
	ID      string `json:"id"`
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Render turns an entry into its display row.
func Render(e Entry) Row {
	return Row{
		ID:      e.ID,
		Time:    e.Timestamp.Format(TimeFormat),
		Level:   e.Level.String(),
		Message: e.Message,
	}
}
