package repl

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const defaultHistorySize = 1000

// History keeps the most recent lines entered at the prompt in
// ~/.blazar/history. AUTH lines are never recorded.
type History struct {
	entries []string
	maxSize int
	file    string
}

func NewHistory() *History {
	home, _ := os.UserHomeDir()
	return NewHistoryFile(filepath.Join(home, ".blazar", "history"), defaultHistorySize)
}

func NewHistoryFile(path string, maxSize int) *History {
	return &History{maxSize: maxSize, file: path}
}

// Add records line unless it is blank, an AUTH command or the same as the
// previous entry.
func (h *History) Add(line string) {
	line = strings.TrimSpace(line)
	if line == "" || isAuth(line) {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == line {
		return
	}
	h.entries = append(h.entries, line)
	if over := len(h.entries) - h.maxSize; over > 0 {
		h.entries = h.entries[over:]
	}
}

func isAuth(line string) bool {
	name, _, _ := strings.Cut(line, " ")
	return strings.EqualFold(name, "AUTH")
}

func (h *History) Len() int {
	return len(h.entries)
}

// Recent returns up to n entries, oldest first.
func (h *History) Recent(n int) []string {
	if n <= 0 || n > len(h.entries) {
		n = len(h.entries)
	}
	return h.entries[len(h.entries)-n:]
}

// Load appends the saved history. A missing file is not an error.
func (h *History) Load() error {
	f, err := os.Open(h.file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		h.Add(sc.Text())
	}
	return sc.Err()
}

// Save replaces the history file with the current entries.
func (h *History) Save() error {
	if err := os.MkdirAll(filepath.Dir(h.file), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(h.file, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	for _, e := range h.entries {
		w.WriteString(e)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
