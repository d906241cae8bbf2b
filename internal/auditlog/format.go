package auditlog

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const emptyValue = "None"

// FieldLabels maps snake_case field paths to display labels. Paths not
// listed fall back to splitting on separators and title-casing.
var FieldLabels = map[string]string{
	"student_name":          "Student Name",
	"date_of_birth":         "Date of Birth",
	"dob":                   "Date of Birth",
	"has_pending_results":   "Pending Results",
	"course_code":           "Course",
	"ucas_number":           "UCAS Number",
	"status":                "Application Status",
	"notes":                 "Admin Notes",
	"qualification":         "Qualification",
	"pending_qualification": "Pending Qualification",
	"work_experience":       "Work Experience",
	"examining_body":        "Examining Body",
	"date_awarded":          "Date Awarded",
	"date_of_results":       "Results Date",
	"interview":             "Interview",
	"interview.question":    "Interview Question",
	"scheduled_at":          "Scheduled For",
	"payment_plan":          "Payment Plan",
	"plan_type":             "Plan Type",
	"first_payment_date":    "First Payment Date",
	"paid_to_date":          "Paid to Date",
	"file":                  "File",
}

// verbatimSuffix marks prefixes whose remainder is a user-entered title
// rather than a field key.
var verbatimSuffix = map[string]bool{
	"qualification":         true,
	"pending_qualification": true,
	"work_experience":       true,
	"file":                  true,
}

// ActionLabels maps action kinds to headings.
var ActionLabels = map[string]string{
	"ADD_FILE":                  "Uploaded File",
	"DELETE_FILE":               "Removed File",
	"SCHEDULE_INTERVIEW":        "Interview Scheduled",
	"UPDATE_INTERVIEW_QUESTION": "Updated Interview Answers",
	"UPDATE_STATUS":             "Status Changed",
}

var actionVerbs = map[string]string{
	"ADD":      "Added",
	"UPDATE":   "Updated",
	"DELETE":   "Deleted",
	"SCHEDULE": "Scheduled",
	"SEND":     "Sent",
}

var acronyms = map[string]string{
	"id":   "ID",
	"url":  "URL",
	"ucas": "UCAS",
	"gcse": "GCSE",
	"btec": "BTEC",
	"hnc":  "HNC",
	"hnd":  "HND",
}

var (
	currencyHints = []string{"fee", "amount", "deposit", "price", "cost", "paid", "balance", "payment_total"}
	dateHints     = []string{"date", "_at", "dob", "birth"}
	boolPrefixes  = []string{"has_", "is_", "can_", "requires_"}
)

// Formatter turns field keys and stored values into display strings.
type Formatter struct {
	norm        *Normalizer
	truncateLen int
}

func NewFormatter(norm *Normalizer, truncateLen int) *Formatter {
	if truncateLen <= 0 {
		truncateLen = 100
	}
	return &Formatter{
		norm:        norm,
		truncateLen: truncateLen,
	}
}

// ActionLabel renders an action kind such as ADD_QUALIFICATION as
// "Added Qualification".
func (f *Formatter) ActionLabel(action string) string {
	if l, ok := ActionLabels[action]; ok {
		return l
	}
	parts := strings.Split(action, "_")
	if len(parts) == 0 || action == "" {
		return "Activity"
	}
	words := make([]string, 0, len(parts))
	start := 0
	if verb, ok := actionVerbs[parts[0]]; ok {
		words = append(words, verb)
		start = 1
	}
	for _, p := range parts[start:] {
		if p != "" {
			words = append(words, f.word(strings.ToLower(p)))
		}
	}
	return strings.Join(words, " ")
}

// FieldLabel renders a dotted field path. camelCase and snake_case keys
// are treated alike.
func (f *Formatter) FieldLabel(path string) string {
	if path == "" {
		return ""
	}
	parts := strings.Split(path, ".")
	key := make([]string, len(parts))
	for i, p := range parts {
		key[i] = toSnake(p)
	}
	if l, ok := FieldLabels[strings.Join(key, ".")]; ok {
		return l
	}

	for i := len(parts) - 1; i >= 1; i-- {
		prefix := strings.Join(key[:i], ".")
		l, ok := FieldLabels[prefix]
		if !ok {
			continue
		}
		if verbatimSuffix[prefix] {
			return l + ": " + strings.Join(parts[i:], ".")
		}
		rest := strings.Join(key[i:], ".")
		if sub, ok := FieldLabels[rest]; ok {
			return l + ": " + sub
		}
		return l + ": " + f.humanize(rest)
	}
	return f.humanize(strings.Join(key, "."))
}

func (f *Formatter) humanize(s string) string {
	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || unicode.IsSpace(r)
	})
	words := make([]string, 0, len(tokens))
	for _, t := range tokens {
		words = append(words, f.word(t))
	}
	return strings.Join(words, " ")
}

func (f *Formatter) word(t string) string {
	if a, ok := acronyms[strings.ToLower(t)]; ok {
		return a
	}
	// Casers keep state between calls, so each word gets its own.
	return cases.Title(language.BritishEnglish).String(t)
}

// FormatValue renders one value for display. key drives the currency, date
// and boolean heuristics. When truncate is set, free text is cut to the
// formatter's length.
func (f *Formatter) FormatValue(key string, v any, truncate bool) string {
	snake := toSnake(lastSegment(key))
	switch x := v.(type) {
	case nil:
		return emptyValue
	case bool:
		return yesNo(x)
	case float64:
		if hasAny(snake, currencyHints) {
			return f.currency(x)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return f.formatString(snake, x, truncate)
	case Value:
		switch x.Kind {
		case KindNull:
			return emptyValue
		case KindText:
			return f.formatString(snake, x.Text, truncate)
		default:
			return f.formatString("", x.String(), truncate)
		}
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return emptyValue
		}
		return f.formatString("", string(b), truncate)
	}
}

func (f *Formatter) formatString(key, s string, truncate bool) string {
	if s == "" {
		return emptyValue
	}
	if key != "" {
		if s == "true" || s == "false" {
			return yesNo(s == "true")
		}
		if hasPrefix(key, boolPrefixes) {
			switch strings.ToLower(s) {
			case "1", "yes", "y":
				return yesNo(true)
			case "0", "no", "n":
				return yesNo(false)
			}
		}
		if hasAny(key, currencyHints) {
			if amount, err := strconv.ParseFloat(strings.TrimPrefix(s, "£"), 64); err == nil {
				return f.currency(amount)
			}
		}
		if hasAny(key, dateHints) {
			if d, ok := f.legacyDate(s); ok {
				return d
			}
		}
	}
	text := plainText(s)
	if truncate {
		text = truncateRunes(text, f.truncateLen)
	}
	return text
}

// legacyDate formats raw ISO timestamps left by older writers. Values
// already in DisplayLayout are shown as stored.
func (f *Formatter) legacyDate(s string) (string, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return f.norm.FormatTime(t), true
		}
	}
	return "", false
}

func (f *Formatter) currency(amount float64) string {
	p := message.NewPrinter(language.BritishEnglish)
	if amount < 0 {
		return "-" + p.Sprintf("£%.2f", -amount)
	}
	return p.Sprintf("£%.2f", amount)
}

// plainText strips markup from rich-text values and collapses whitespace.
func plainText(s string) string {
	if strings.ContainsRune(s, '<') && strings.ContainsRune(s, '>') {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimRightFunc(string(r[:n]), unicode.IsSpace) + "…"
}

// toSnake converts camelCase to snake_case; snake_case passes through.
func toSnake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]) && runes[i-1] != '_')) {
				b.WriteRune('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}

func hasAny(s string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}

func hasPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
