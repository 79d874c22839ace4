package services

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"wallboard/internal/models"
)

// NoticeReader reads the tail of the wall notice log. The log is appended to
// by other tools; this program only ever reads it.
type NoticeReader struct {
	Path      string
	ReadLimit int
}

func NewNoticeReader(path string, readLimit int) *NoticeReader {
	return &NoticeReader{Path: path, ReadLimit: readLimit}
}

// Read returns the last ReadLimit lines of the log with surrounding
// whitespace stripped. A missing log is not an error and yields no lines.
// ReadLimit <= 0 keeps every line.
func (r *NoticeReader) Read() (models.NoticeLog, error) {
	result := models.NoticeLog{Path: r.Path, Lines: []string{}}

	f, err := os.Open(r.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return result, nil
		}
		return result, fmt.Errorf("open notice log: %w", err)
	}
	defer f.Close()

	var ring []string
	br := bufio.NewReader(f)
	for {
		line, err := readNoticeLine(br)
		if line != "" || err == nil {
			ring = append(ring, line)
			if r.ReadLimit > 0 && len(ring) > r.ReadLimit {
				ring = ring[1:]
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, fmt.Errorf("read notice log: %w", err)
		}
	}

	result.Lines = append(result.Lines, ring...)
	return result, nil
}

// MaxNoticeLineBytes caps a single notice line. Longer lines are truncated.
const MaxNoticeLineBytes = 64 * 1024

// readNoticeLine returns the next line without its terminator and with
// surrounding whitespace stripped, truncated to MaxNoticeLineBytes.
func readNoticeLine(br *bufio.Reader) (string, error) {
	var (
		buf  []byte
		full bool
	)
	for {
		chunk, err := br.ReadSlice('\n')
		if !full {
			room := MaxNoticeLineBytes - len(buf)
			if len(chunk) > room {
				chunk = chunk[:room]
				full = true
			}
			buf = append(buf, chunk...)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return strings.TrimSpace(string(buf)), err
	}
}
