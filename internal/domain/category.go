package domain

import "strings"

// categoryText rewrites the raw violation-category phrases printed in the
// ABQ report PDFs into the phrasing shown to users. The keys are the exact
// strings that follow "Violation:" in the reports.
var categoryText = map[string]string{
	"Food Temperature":       "food held at unsafe temperature",
	"Cold Holding":           "cold food held above safe temperature",
	"Hot Holding":            "hot food held below safe temperature",
	"Hand Washing":           "inadequate handwashing facilities or practice",
	"Cross Contamination":    "risk of cross contamination",
	"Pest Control":           "evidence of insects or rodents",
	"Sanitization":           "food-contact surfaces not properly sanitized",
	"Employee Hygiene":       "improper employee hygiene",
	"Food Storage":           "food stored improperly",
	"Equipment Condition":    "equipment not maintained or in disrepair",
	"Water Supply":           "water supply not safe or adequate",
	"Sewage Disposal":        "sewage or wastewater not properly disposed",
	"Chemical Storage":       "toxic items stored near food",
	"Date Marking":           "ready-to-eat food not date marked",
	"Approved Source":        "food from an unapproved source",
	"Plumbing":               "plumbing not installed or maintained",
	"Certified Food Manager": "no certified food protection manager",
}

// RewriteCategory maps a raw violation-category phrase to its user-facing
// text. Unmapped categories fall back to the lower-cased input unchanged, so
// new report phrasings degrade gracefully instead of disappearing.
func RewriteCategory(raw string) string {
	raw = strings.TrimSpace(raw)
	if text, ok := categoryText[raw]; ok {
		return text
	}
	return strings.ToLower(raw)
}
