package notes

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/hpungsan/pmprep/internal/errors"
)

// blockElements end a line when converting rich text to plain text.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true,
}

// PlainText renders serialized rich text (HTML) as plain text, one line per
// block element. Input that is not HTML passes through as text.
func PlainText(content string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return content
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			b.WriteString("\n")
		}
	}
	walk(doc)

	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimRight(l, " \t"); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// WordCount counts whitespace-separated words in the plain-text form of content.
func WordCount(content string) int {
	return len(strings.Fields(PlainText(content)))
}

// ExportFileName is the download name of a note exported on day.
func ExportFileName(key Key, day time.Time) string {
	prefix := "overall-notes"
	if id, ok := key.QuestionID(); ok {
		prefix = "question-notes-" + sanitizeFileComponent(id)
	}
	return fmt.Sprintf("%s-%s.txt", prefix, day.Format("2006-01-02"))
}

// Export writes the plain-text form of the note under key to dir and
// returns the file path. An absent note exports as an empty file. The file
// is written to a temp name and renamed, so an existing export survives a
// failed write.
func (s *Store) Export(key Key, dir string) (string, error) {
	note, _ := s.Get(key)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	if info, err := os.Lstat(dir); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return "", errors.NewInvalidRequest("export directory must not be a symlink")
	}

	path := filepath.Join(dir, ExportFileName(key, s.now()))
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return "", fmt.Errorf("failed to generate temp file name: %w", err)
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"

	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.WriteString(PlainText(note.Content)); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	if err := file.Close(); err != nil {
		file = nil
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	file = nil
	if err := os.Rename(tempPath, path); err != nil {
		return "", fmt.Errorf("failed to finalize export: %w", err)
	}
	success = true

	s.log.Debug("note exported", "note_key", string(key), "path", path)
	return path, nil
}

func sanitizeFileComponent(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
