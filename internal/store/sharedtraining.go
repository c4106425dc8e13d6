package store

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/paperloom/core/internal/model"
)

const sharedTrainingDelimiter = "================================================================================"

// entryHeaderPattern matches the "SUBMISSION #N | Accepted: <RFC3339>" line
// that follows each delimiter, per spec.md §4.5's canonical on-disk format.
var entryHeaderPattern = regexp.MustCompile(`^SUBMISSION #(\d+) \| Accepted: (\S+)$`)

// RechunkFunc is the callback fired, outside any store lock, whenever the
// Shared Training Log's full content changes. It re-ingests the new
// content into the Retrieval Engine at every configured chunk size.
type RechunkFunc func(ctx context.Context, fullText string) error

// SharedTrainingLog is the gap-free, monotonically numbered sequence of
// accepted submissions (spec.md §4.5). It is a single-writer file: every
// mutation serializes the whole log and invokes the re-chunk callback.
type SharedTrainingLog struct {
	mu      sync.Mutex
	path    string
	entries []model.AcceptedEntry
	nextNum int
	rechunk RechunkFunc
}

// NewSharedTrainingLog loads path if it exists (or starts empty) and
// returns a ready-to-use log. rechunk may be nil, in which case appends
// and removals simply skip re-ingestion (useful in tests).
func NewSharedTrainingLog(path string, rechunk RechunkFunc) (*SharedTrainingLog, error) {
	l := &SharedTrainingLog{path: path, rechunk: rechunk, nextNum: 1}
	data, err := readFileOrEmpty(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return l, nil
	}
	entries, err := parseSharedTraining(string(data))
	if err != nil {
		return nil, err
	}
	l.entries = entries
	for _, e := range entries {
		if e.Number >= l.nextNum {
			l.nextNum = e.Number + 1
		}
	}
	return l, nil
}

// parseSharedTraining parses the canonical delimiter format. If no
// delimiter matches at all but the file has content, the whole file is
// accepted as a single entry numbered 1 (spec.md §4.5 fallback rule).
func parseSharedTraining(data string) ([]model.AcceptedEntry, error) {
	lines := strings.Split(data, "\n")
	var entries []model.AcceptedEntry
	i := 0
	sawDelimiter := false
	for i < len(lines) {
		if strings.TrimRight(lines[i], "\r") != sharedTrainingDelimiter {
			i++
			continue
		}
		if i+2 >= len(lines) || strings.TrimRight(lines[i+2], "\r") != sharedTrainingDelimiter {
			i++
			continue
		}
		header := strings.TrimRight(lines[i+1], "\r")
		m := entryHeaderPattern.FindStringSubmatch(header)
		if m == nil {
			i++
			continue
		}
		sawDelimiter = true
		number, _ := strconv.Atoi(m[1])
		timestamp, err := time.Parse(time.RFC3339, m[2])
		if err != nil {
			timestamp = time.Time{}
		}
		contentStart := i + 3
		contentEnd := len(lines)
		for j := contentStart; j < len(lines); j++ {
			if strings.TrimRight(lines[j], "\r") == sharedTrainingDelimiter &&
				j+1 < len(lines) && entryHeaderPattern.MatchString(strings.TrimRight(lines[j+1], "\r")) {
				contentEnd = j
				break
			}
		}
		content := strings.TrimSuffix(strings.Join(lines[contentStart:contentEnd], "\n"), "\n")
		content = strings.TrimRight(content, "\n")
		entries = append(entries, model.AcceptedEntry{
			Number:    number,
			Timestamp: timestamp,
			Content:   content,
		})
		i = contentEnd
	}
	if !sawDelimiter {
		trimmed := strings.TrimSpace(data)
		if trimmed == "" {
			return nil, nil
		}
		return []model.AcceptedEntry{{Number: 1, Timestamp: time.Now(), Content: trimmed}}, nil
	}
	return entries, nil
}

func formatSharedTraining(entries []model.AcceptedEntry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s\nSUBMISSION #%d | Accepted: %s\n%s\n%s\n\n",
			sharedTrainingDelimiter, e.Number, e.Timestamp.UTC().Format(time.RFC3339), sharedTrainingDelimiter, e.Content)
	}
	return b.String()
}

// Append adds content as a new entry with the next gap-free number,
// persists the log, and fires the re-chunk callback with the full text.
// Content is never truncated.
func (l *SharedTrainingLog) Append(ctx context.Context, content string) (model.AcceptedEntry, error) {
	l.mu.Lock()
	entry := model.AcceptedEntry{Number: l.nextNum, Timestamp: time.Now(), Content: content}
	l.entries = append(l.entries, entry)
	l.nextNum++
	full := formatSharedTraining(l.entries)
	err := writeFileAtomic(l.path, []byte(full), 0o644)
	l.mu.Unlock()

	if err != nil {
		return model.AcceptedEntry{}, fmt.Errorf("sharedtraining: append: %w", err)
	}
	if l.rechunk != nil {
		if err := l.rechunk(ctx, full); err != nil {
			return entry, fmt.Errorf("sharedtraining: rechunk after append: %w", err)
		}
	}
	return entry, nil
}

// Remove deletes the entry with the given number (used by cleanup review
// after a second validator approves the specific removal), rewrites the
// file, and fires the re-chunk callback.
func (l *SharedTrainingLog) Remove(ctx context.Context, number int) error {
	l.mu.Lock()
	idx := -1
	for i, e := range l.entries {
		if e.Number == number {
			idx = i
			break
		}
	}
	if idx == -1 {
		l.mu.Unlock()
		return fmt.Errorf("sharedtraining: no entry numbered %d", number)
	}
	l.entries = append(l.entries[:idx], l.entries[idx+1:]...)
	full := formatSharedTraining(l.entries)
	err := writeFileAtomic(l.path, []byte(full), 0o644)
	l.mu.Unlock()

	if err != nil {
		return fmt.Errorf("sharedtraining: remove: %w", err)
	}
	if l.rechunk != nil {
		if err := l.rechunk(ctx, full); err != nil {
			return fmt.Errorf("sharedtraining: rechunk after remove: %w", err)
		}
	}
	return nil
}

// Entries returns a snapshot copy of the current gap-free entry sequence.
func (l *SharedTrainingLog) Entries() []model.AcceptedEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.AcceptedEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Count returns the number of entries currently in the log.
func (l *SharedTrainingLog) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
