package logs

import (
	"encoding/json"
	"strings"

	"kinobot/internal/logging"
)

// Filter reports whether a log record should be kept.
type Filter func(record string) bool

// Match describes the records `kinobot logs` narrows to. Empty fields match
// everything.
type Match struct {
	UserID    string
	Code      string
	EventType string
	// MinLevel is one of debug, info, warn, error.
	MinLevel string
}

// Empty reports whether m matches every record.
func (m Match) Empty() bool {
	return m.UserID == "" && m.Code == "" && m.EventType == "" && m.MinLevel == ""
}

// Filter compiles m, or returns nil when m matches everything.
func (m Match) Filter() Filter {
	if m.Empty() {
		return nil
	}
	want := map[string]string{}
	if m.UserID != "" {
		want[logging.FieldUserID] = m.UserID
	}
	if m.Code != "" {
		want[logging.FieldCode] = m.Code
	}
	if m.EventType != "" {
		want[logging.FieldEventType] = m.EventType
	}
	minRank := levelRank(m.MinLevel)
	return func(record string) bool {
		fields, level := parseRecord(record)
		if levelRank(level) < minRank {
			return false
		}
		for key, value := range want {
			if fields[key] != value {
				return false
			}
		}
		return true
	}
}

// parseRecord extracts string fields and the level from a JSON record or a
// console record. Console records carry level, component, user and code in
// the header line and the remaining fields as indented "- key: value" lines.
func parseRecord(record string) (map[string]string, string) {
	trimmed := strings.TrimSpace(record)
	if strings.HasPrefix(trimmed, "{") {
		if fields, ok := parseJSON(trimmed); ok {
			return fields, fields["level"]
		}
	}

	header, rest, _ := strings.Cut(record, "\n")
	fields, level := parseConsoleHeader(header)
	for _, line := range strings.Split(rest, "\n") {
		line = strings.TrimSpace(line)
		line, ok := strings.CutPrefix(line, "- ")
		if !ok {
			continue
		}
		if key, value, ok := strings.Cut(line, ": "); ok {
			fields[key] = value
		}
	}
	return fields, level
}

func parseJSON(line string) (map[string]string, bool) {
	var raw map[string]any
	decoder := json.NewDecoder(strings.NewReader(line))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return nil, false
	}
	fields := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			fields[key] = v
		case json.Number:
			fields[key] = v.String()
		}
	}
	return fields, true
}

// parseConsoleHeader reads "date time LEVEL [component] user ID · #CODE – message".
func parseConsoleHeader(header string) (map[string]string, string) {
	fields := map[string]string{}
	head, _, _ := strings.Cut(header, " – ")
	tokens := strings.Fields(head)
	level := ""
	for i := 0; i < len(tokens); i++ {
		token := tokens[i]
		switch {
		case level == "" && levelRank(token) > 0 && !strings.HasPrefix(token, "["):
			level = token
		case strings.HasPrefix(token, "[") && strings.HasSuffix(token, "]"):
			fields[logging.FieldComponent] = strings.Trim(token, "[]")
		case token == "user" && i+1 < len(tokens):
			fields[logging.FieldUserID] = tokens[i+1]
			i++
		case strings.HasPrefix(token, "#") && len(token) > 1:
			fields[logging.FieldCode] = token[1:]
		}
	}
	return fields, level
}

func levelRank(level string) int {
	switch strings.ToLower(strings.Trim(level, "[]")) {
	case "debug":
		return 1
	case "info":
		return 2
	case "warn", "warning":
		return 3
	case "error":
		return 4
	}
	return 0
}
