// File: internal/usecase/service_codes.go
package usecase

import (
	"html"
	"regexp"
	"strings"
	"time"

	"telegram-account-manager/internal/domain/model"
)

var boldSpan = regexp.MustCompile(`\*\*(.*?)\*\*`)

// ExtractCodeLine returns the first line of text containing one of markers.
func ExtractCodeLine(text string, markers []string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		for _, m := range markers {
			if m != "" && strings.Contains(line, m) {
				return strings.TrimSpace(line), true
			}
		}
	}
	return "", false
}

// RenderCodeLine turns "**x**" spans into <b>x</b>. Every literal segment is HTML-escaped,
// bold content included; only the <b> wrappers are emitted as markup.
func RenderCodeLine(line string) string {
	var sb strings.Builder
	pos := 0
	for _, m := range boldSpan.FindAllStringSubmatchIndex(line, -1) {
		sb.WriteString(html.EscapeString(line[pos:m[0]]))
		sb.WriteString("<b>")
		sb.WriteString(html.EscapeString(line[m[2]:m[3]]))
		sb.WriteString("</b>")
		pos = m[1]
	}
	sb.WriteString(html.EscapeString(line[pos:]))
	return sb.String()
}

// BuildCodeReport formats msgs (newest first) into one entry per message.
func BuildCodeReport(msgs []model.ServiceMessage, markers []string, loc *time.Location) *model.ServiceCodeReport {
	if loc == nil {
		loc = time.Local
	}
	report := &model.ServiceCodeReport{Total: len(msgs), Entries: make([]model.CodeEntry, 0, len(msgs))}
	for _, msg := range msgs {
		entry := model.CodeEntry{Time: msg.Date.In(loc).Format("15:04:05")}
		if line, ok := ExtractCodeLine(msg.Text, markers); ok {
			entry.HTML = RenderCodeLine(line)
			entry.Extracted = true
		}
		report.Entries = append(report.Entries, entry)
	}
	return report
}
