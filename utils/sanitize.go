package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// CleanText strips markup and surrounding whitespace from user-supplied text.
// Entities escaped by the policy are decoded back so stored text stays plain.
func CleanText(input string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(input)))
}

// CleanPtr applies CleanText through an optional field.
func CleanPtr(input *string) *string {
	if input == nil {
		return nil
	}
	out := CleanText(*input)
	return &out
}

// CleanTags splits comma separated tag input and drops empties.
func CleanTags(inputs []string) []string {
	out := []string{}
	for _, input := range inputs {
		for _, tag := range strings.Split(input, ",") {
			if tag = CleanText(tag); tag != "" {
				out = append(out, tag)
			}
		}
	}
	return out
}
