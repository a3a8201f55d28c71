// Package prompts holds the embedded system instructions sent to the LLM.
package prompts

import (
	_ "embed"
	"fmt"
	"strings"
	"time"
)

//go:embed static/analyst.md
var financeAnalyst string

// FinanceAnalyst returns the system instructions for the financial analyst
// role.
func FinanceAnalyst() string {
	return strings.TrimSpace(financeAnalyst)
}

// WithTimestamp prefixes a user query with the current date and time so the
// model can anchor its analysis. Responses without this tend to hedge about
// which trading day they are describing.
func WithTimestamp(query string, now time.Time) string {
	return fmt.Sprintf("[Current date and time: %s]\n\n%s", now.Format("2006-01-02 15:04 MST"), query)
}
