package summary

import (
	"strings"
	"unicode/utf8"

	"github.com/kovalyov-valentin/news-feed-ingestor/internal/model"
)

const (
	// PointBudget is the longest a single fallback point may be, in characters.
	PointBudget = 220
	// ShortBudget is the length of the short hook before the ellipsis.
	ShortBudget = 150
	ellipsis    = "..."
)

// Fallback summarizes text locally without any external call.
func Fallback(text string) model.Summary {
	cleaned := collapseSpaces(text)
	point1, _, extended := ExtractTwoSummaryPoints(cleaned)

	short := point1
	if short == "" {
		short = cleaned
	}

	return model.Summary{
		Short:    truncate(short, ShortBudget, ellipsis),
		Extended: extended,
	}
}

// ExtractTwoSummaryPoints splits text into at most two points of PointBudget characters.
// Whole sentences go into the first point while they fit, the rest form the second one.
// Text that cannot be split on sentences is cut at the budget.
func ExtractTwoSummaryPoints(text string) (point1, point2, extended string) {
	cleaned := collapseSpaces(text)
	if cleaned == "" {
		return "", "", ""
	}

	if utf8.RuneCountInString(cleaned) <= PointBudget {
		return cleaned, "", cleaned
	}

	sentences := splitSentences(cleaned)

	var (
		first strings.Builder
		i     int
	)
	for ; i < len(sentences); i++ {
		if utf8.RuneCountInString(first.String())+utf8.RuneCountInString(sentences[i]) > PointBudget {
			break
		}
		first.WriteString(sentences[i])
	}
	point1 = strings.TrimSpace(first.String())
	point2 = strings.TrimSpace(strings.Join(sentences[i:], ""))

	if point1 == "" || point2 == "" {
		runes := []rune(cleaned)
		point1 = strings.TrimSpace(string(runes[:PointBudget]))
		point2 = truncate(strings.TrimSpace(string(runes[PointBudget:])), PointBudget, ellipsis)
	}

	return point1, point2, model.JoinSummaryPoints(point1, point2)
}

// splitSentences cuts text after every run of '.', '!' or '?'. Joining the result gives the input back.
func splitSentences(text string) []string {
	var (
		sentences []string
		start     int
		inStop    bool
	)

	for i, r := range text {
		isStop := r == '.' || r == '!' || r == '?'
		if inStop && !isStop {
			sentences = append(sentences, text[start:i])
			start = i
		}
		inStop = isStop
	}

	if start < len(text) {
		sentences = append(sentences, text[start:])
	}

	return sentences
}

func collapseSpaces(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// truncate keeps the first limit runes of s and appends suffix when something was cut.
func truncate(s string, limit int, suffix string) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + suffix
}
