// Package roster builds the canonical id -> display name index from the
// roster table and provides the loose-column extraction helpers shared by
// the activity integrator. Spreadsheets arrive with unpredictable column
// headers (Chinese and English variants both occur in the wild), so every
// concept is resolved through an ordered candidate list: first non-empty
// column wins.
package roster

import (
	"fmt"
	"strconv"
	"strings"
)

// RawRow is one decoded spreadsheet line: column header -> cell value.
// Values are whatever the decoder produced (string, float64, int, nil).
// RawRows never travel past extraction; they are resolved into typed
// records immediately.
type RawRow map[string]any

// Candidate column headers per concept. Order matters: the first header
// present with a non-empty value is used.
var (
	IDFields       = []string{"seat_no", "id", "student_id", "学号", "座号", "编号"}
	NameFields     = []string{"name", "student_name", "姓名", "学生姓名"}
	CategoryFields = []string{"subject", "category", "科目", "学科", "项目"}
	DateFields     = []string{"date", "timestamp", "日期", "时间"}
	ScoreFields    = []string{"score", "points", "分数", "得分", "成绩"}
)

// FirstNonEmpty resolves a concept against a row using the ordered
// candidate list. Returns the trimmed string form of the first non-empty
// match.
func FirstNonEmpty(row RawRow, candidates []string) (string, bool) {
	for _, field := range candidates {
		v, ok := row[field]
		if !ok {
			continue
		}
		s := strings.TrimSpace(stringify(v))
		if s != "" {
			return s, true
		}
	}
	return "", false
}

// ExtractScore resolves the score concept to a float. The bool reports
// whether any score column held a parseable number; unparseable text in
// a score column is treated as absent, not an error.
func ExtractScore(row RawRow) (float64, bool) {
	raw, ok := FirstNonEmpty(row, ScoreFields)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		// Seat numbers decode as floats from most spreadsheet readers.
		// 7.0 must stringify as "7" so it matches the roster key.
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprintf("%v", t)
	}
}
