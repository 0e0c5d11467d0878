package store

import (
	"context"
	"strings"
	"unicode"

	"github.com/roach88/esqlite/internal/protocol"
)

// script runs each statement of a multi-statement text in order and stops
// at the first failure. There is one outcome per attempted statement.
func (s *Store) script(ctx context.Context, text string) protocol.Reply {
	stmts := SplitStatements(text)
	outcomes := make([]protocol.Outcome, 0, len(stmts))

	for _, stmt := range stmts {
		reply := s.exec(ctx, stmt, nil)
		outcome := protocol.Outcome{SQL: stmt}
		if reply.Kind == protocol.KindError {
			outcome.Error = reply.Error
		}
		outcomes = append(outcomes, outcome)
		if !outcome.OK() {
			break
		}
	}

	return protocol.Reply{Kind: protocol.KindOutcomes, Outcomes: outcomes}
}

// SplitStatements splits a script on top-level semicolons.
//
// Semicolons inside string literals, quoted identifiers, comments and the
// BEGIN ... END body of CREATE TRIGGER do not split. Fragments holding only
// whitespace and comments are dropped. Returned statements are trimmed and
// carry no trailing semicolon.
func SplitStatements(text string) []string {
	sc := splitter{src: text}
	return sc.run()
}

type splitter struct {
	src   string
	out   []string
	start int

	// per statement
	hasCode bool
	words   int
	trigger bool
	depth   int
}

func (sc *splitter) run() []string {
	src := sc.src
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '-' && i+1 < len(src) && src[i+1] == '-':
			i = skipUntil(src, i+2, "\n")
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			i = skipUntil(src, i+2, "*/")
		case c == '\'' || c == '"' || c == '`':
			sc.hasCode = true
			i = skipQuoted(src, i, c)
		case c == '[':
			sc.hasCode = true
			i = skipUntil(src, i+1, "]")
		case c == ';':
			if sc.depth == 0 {
				sc.emit(i)
				i++
				sc.start = i
				continue
			}
			i++
		case isWordByte(c):
			j := i
			for j < len(src) && isWordByte(src[j]) {
				j++
			}
			sc.word(src[i:j])
			i = j
		default:
			if !unicode.IsSpace(rune(c)) {
				sc.hasCode = true
			}
			i++
		}
	}
	sc.emit(len(src))
	return sc.out
}

// word tracks the keywords that open and close a trigger body.
func (sc *splitter) word(w string) {
	sc.hasCode = true
	sc.words++
	upper := strings.ToUpper(w)

	// CREATE [TEMP|TEMPORARY] TRIGGER
	if sc.words <= 3 && upper == "TRIGGER" {
		sc.trigger = true
		return
	}
	if !sc.trigger {
		return
	}
	switch upper {
	case "BEGIN":
		if sc.depth == 0 {
			sc.depth = 1
		}
	case "CASE":
		if sc.depth > 0 {
			sc.depth++
		}
	case "END":
		if sc.depth > 0 {
			sc.depth--
		}
	}
}

func (sc *splitter) emit(end int) {
	if sc.hasCode {
		if stmt := strings.TrimSpace(sc.src[sc.start:end]); stmt != "" {
			sc.out = append(sc.out, stmt)
		}
	}
	sc.hasCode = false
	sc.words = 0
	sc.trigger = false
	sc.depth = 0
}

// skipUntil returns the index just past the next occurrence of end at or
// after i, or len(s) if there is none.
func skipUntil(s string, i int, end string) int {
	if k := strings.Index(s[i:], end); k >= 0 {
		return i + k + len(end)
	}
	return len(s)
}

// skipQuoted skips a literal opened by q at s[i]. A doubled quote is an
// escaped quote.
func skipQuoted(s string, i int, q byte) int {
	for j := i + 1; j < len(s); j++ {
		if s[j] != q {
			continue
		}
		if j+1 < len(s) && s[j+1] == q {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}

// isDML reports whether the statement's first keyword makes it report
// changes() and last_insert_rowid().
func isDML(query string) bool {
	switch leadingKeyword(query) {
	case "INSERT", "UPDATE", "DELETE", "REPLACE":
		return true
	default:
		return false
	}
}

// leadingKeyword returns the first word of query, upper-cased, skipping
// whitespace and comments.
func leadingKeyword(query string) string {
	i := 0
	for i < len(query) {
		switch {
		case unicode.IsSpace(rune(query[i])):
			i++
		case strings.HasPrefix(query[i:], "--"):
			i = skipUntil(query, i+2, "\n")
		case strings.HasPrefix(query[i:], "/*"):
			i = skipUntil(query, i+2, "*/")
		default:
			j := i
			for j < len(query) && isWordByte(query[j]) {
				j++
			}
			return strings.ToUpper(query[i:j])
		}
	}
	return ""
}
