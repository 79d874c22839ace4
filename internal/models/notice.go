package models

// NoticeLog holds the lines read from the tail of the wall notice log
type NoticeLog struct {
	Path  string   `json:"path"`
	Lines []string `json:"lines"`
}

// Tail returns at most limit of the most recent lines. It never returns
// more lines than were read; limit <= 0 returns every line read.
func (n NoticeLog) Tail(limit int) []string {
	if limit <= 0 || len(n.Lines) <= limit {
		return n.Lines
	}
	return n.Lines[len(n.Lines)-limit:]
}
