package usecases

import (
	"fmt"
	"regexp"
	"strings"
)

type Category string

const (
	CategoryStatus       Category = "status"
	CategoryBuilder      Category = "builder"
	CategoryRERA         Category = "rera"
	CategoryConstruction Category = "construction"
	CategoryDelivery     Category = "delivery"
)

// CategoryKeywords pairs a category with the substrings that route to it
type CategoryKeywords struct {
	Category Category
	Keywords []string
}

// KeywordTable is checked in order; the first category with a hit wins.
var KeywordTable = []CategoryKeywords{
	{CategoryStatus, []string{"status", "progress", "completion", "finished", "done"}},
	{CategoryBuilder, []string{"builder", "developer", "promoter", "company", "management"}},
	{CategoryRERA, []string{"rera", "complaint", "legal", "court", "authority", "lawyer"}},
	{CategoryConstruction, []string{"construction", "site", "work", "floor", "structure", "labour", "labor", "material"}},
	{CategoryDelivery, []string{"delivery", "handover", "hand over", "possession", "timeline"}},
}

// Secondary heuristics that only ever select delivery
var (
	deliveryWhenWords = []string{"ready", "complete", "done"}
	deliveryDateWords = []string{"date", "deadline", "finish"}
)

const (
	GenericFallbackAnswer = "I couldn't find specific information about that in the chat history. " +
		"You can ask about the project status, the builder, the RERA complaint, " +
		"construction updates, or the delivery timeline."

	DeliveryTimelineAnswer = "The latest promised delivery date is September 2025. " +
		"The original handover date of 2020 was extended to 2022 and then again to 2024, " +
		"so buyers should keep monitoring progress closely."

	examplesHeader = "\n\nRelevant messages include:\n"
	maxExamples    = 3
)

var categorySummaries = map[Category]string{
	CategoryStatus:       "Based on the chat history, here is what buyers have shared about the current project status.",
	CategoryBuilder:      "Here is what the group has discussed about communication with the builder.",
	CategoryRERA:         "Here is what the group has discussed about the RERA complaint and legal options.",
	CategoryConstruction: "Here are the latest construction updates shared from site visits.",
	CategoryDelivery:     "Here is what the group has discussed about the delivery and handover timeline.",
}

// leading "[date, time] Sender:" of an exported chat line
var datePrefix = regexp.MustCompile(`^\[([^\]]+)\]([^:]*):\s*`)

// Categorize resolves the topic of a question. Keyword hits are tried in table
// order, then the delivery heuristics.
func Categorize(question string) (Category, bool) {
	q := strings.ToLower(question)

	for _, entry := range KeywordTable {
		if containsAny(q, entry.Keywords) {
			return entry.Category, true
		}
	}

	if strings.Contains(q, "when") && containsAny(q, deliveryWhenWords) {
		return CategoryDelivery, true
	}
	if containsAny(q, deliveryDateWords) {
		return CategoryDelivery, true
	}
	return "", false
}

// Keywords returns the keyword set of a category, nil if unknown
func Keywords(category Category) []string {
	for _, entry := range KeywordTable {
		if entry.Category == category {
			return entry.Keywords
		}
	}
	return nil
}

// FilterMessages keeps messages mentioning any keyword of the category, in input order
func FilterMessages(category Category, messages []string) []string {
	keywords := Keywords(category)
	var matched []string
	for _, msg := range messages {
		if containsAny(strings.ToLower(msg), keywords) {
			matched = append(matched, msg)
		}
	}
	return matched
}

// FormatExample rewrites "[date] Sender: body" as "On date: body".
// Anything else is returned unchanged.
func FormatExample(msg string) string {
	loc := datePrefix.FindStringSubmatchIndex(msg)
	if loc == nil {
		return msg
	}
	return "On " + msg[loc[2]:loc[3]] + ": " + msg[loc[1]:]
}

// AnswerFromMessages is the local keyword answer. The second return is the
// resolved category, empty when nothing matched.
func AnswerFromMessages(question string, messages []string) (string, Category) {
	category, ok := Categorize(question)
	if !ok {
		return GenericFallbackAnswer, ""
	}

	matched := FilterMessages(category, messages)
	if len(matched) == 0 {
		if category == CategoryDelivery {
			return DeliveryTimelineAnswer, category
		}
		return NoInformationAnswer(category), category
	}

	if len(matched) > maxExamples {
		matched = matched[:maxExamples]
	}
	examples := make([]string, len(matched))
	for i, msg := range matched {
		examples[i] = FormatExample(msg)
	}

	return categorySummaries[category] + examplesHeader + strings.Join(examples, "\n"), category
}

func NoInformationAnswer(category Category) string {
	return fmt.Sprintf("I couldn't find information about %s in the uploaded chats.", category)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
