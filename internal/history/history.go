package history

import "docmind/internal/models"

// Log is the ordered conversation exchange log of one session. Every
// exchange is kept; only the most recent window feeds new prompts. The
// owning session serializes access.
type Log struct {
	exchanges []models.Exchange
}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Append(question, answer string) {
	l.exchanges = append(l.exchanges, models.Exchange{Question: question, Answer: answer})
}

// Recent returns the last n exchanges in occurrence order.
func (l *Log) Recent(n int) []models.Exchange {
	if n <= 0 || len(l.exchanges) == 0 {
		return nil
	}
	start := len(l.exchanges) - n
	if start < 0 {
		start = 0
	}
	out := make([]models.Exchange, len(l.exchanges)-start)
	copy(out, l.exchanges[start:])
	return out
}

func (l *Log) All() []models.Exchange {
	out := make([]models.Exchange, len(l.exchanges))
	copy(out, l.exchanges)
	return out
}

func (l *Log) Len() int {
	return len(l.exchanges)
}

func (l *Log) Clear() {
	l.exchanges = nil
}
