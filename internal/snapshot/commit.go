// Package snapshot encodes and decodes commit records. A commit is a flat
// snapshot: a message, a timestamp and every tracked path with its blob hash.
// Commits carry no parent; history lives only in ref updates.
package snapshot

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
	"time"

	"myvcs/internal/index"
)

const (
	messagePrefix = "Commit: "
	datePrefix    = "Date: "

	// DateLayout is the timestamp format written into commit records.
	DateLayout = time.RFC3339
)

// Snapshot maps a root-relative path to its blob hash.
type Snapshot map[string]string

// Commit is a decoded commit record.
type Commit struct {
	Message string
	Date    time.Time
	Files   []index.Entry
}

// New builds a commit over files, sorted by path.
func New(message string, date time.Time, files map[string]string) *Commit {
	return &Commit{
		Message: message,
		Date:    date,
		Files:   index.Sorted(files),
	}
}

// Snapshot returns the commit's path to hash mapping.
func (c *Commit) Snapshot() Snapshot {
	s := make(Snapshot, len(c.Files))
	for _, f := range c.Files {
		s[f.Path] = f.Hash
	}
	return s
}

// Encode renders the commit record. Line breaks in the message are folded
// into spaces so the record keeps one message line.
func (c *Commit) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteString(messagePrefix)
	buf.WriteString(foldMessage(c.Message))
	buf.WriteByte('\n')
	buf.WriteString(datePrefix)
	buf.WriteString(c.Date.UTC().Truncate(time.Second).Format(DateLayout))
	buf.WriteByte('\n')
	for _, f := range index.Sorted(c.Snapshot()) {
		fmt.Fprintf(&buf, "%s %s\n", f.Path, f.Hash)
	}
	return buf.Bytes()
}

// Decode parses a commit record. A date that cannot be parsed leaves Date
// zero instead of failing.
func Decode(data []byte) (*Commit, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	c := &Commit{}
	line := 0
	for scanner.Scan() {
		text := strings.TrimRight(scanner.Text(), "\r")
		line++
		switch line {
		case 1:
			if !strings.HasPrefix(text, messagePrefix) {
				return nil, fmt.Errorf("decode commit: line 1: missing %q header", strings.TrimSpace(messagePrefix))
			}
			c.Message = strings.TrimPrefix(text, messagePrefix)
		case 2:
			if !strings.HasPrefix(text, datePrefix) {
				return nil, fmt.Errorf("decode commit: line 2: missing %q header", strings.TrimSpace(datePrefix))
			}
			if t, err := time.Parse(DateLayout, strings.TrimPrefix(text, datePrefix)); err == nil {
				c.Date = t
			}
		default:
			i := strings.LastIndexByte(text, ' ')
			if i <= 0 || i == len(text)-1 {
				continue
			}
			c.Files = append(c.Files, index.Entry{Path: text[:i], Hash: text[i+1:]})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("decode commit: %w", err)
	}
	if line < 2 {
		return nil, fmt.Errorf("decode commit: truncated record")
	}

	// Re-sort and collapse duplicates the same way the index does.
	c.Files = index.Sorted(c.Snapshot())
	return c, nil
}

func foldMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", " ")
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, msg)
}
