package biz

import (
	"strings"

	"github.com/kart-io/sentinel-kb/pkg/errors"
)

// Element is one structural unit of parsed content: a section of prose under
// an optional heading.
type Element struct {
	Section string
	Text    string
}

// Parser turns raw document content into structural elements for chunking.
type Parser struct{}

// NewParser creates a Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse splits content at markdown headings and trims empty sections.
// Content with no usable text at all returns ErrContentUnparsable; that is a
// terminal condition for the document, retries cannot fix it.
func (p *Parser) Parse(content string) ([]Element, error) {
	sections := headingRegex.Split(content, -1)
	headings := headingRegex.FindAllStringSubmatch(content, -1)

	var elements []Element
	currentSection := ""
	for i, section := range sections {
		if i > 0 && i-1 < len(headings) {
			currentSection = headings[i-1][2]
		}

		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		elements = append(elements, Element{Section: currentSection, Text: section})
	}

	if len(elements) == 0 {
		return nil, errors.ErrContentUnparsable
	}
	return elements, nil
}

// Join flattens elements back into a single text, preserving section order.
func Join(elements []Element) string {
	parts := make([]string, len(elements))
	for i, el := range elements {
		parts[i] = el.Text
	}
	return strings.Join(parts, "\n\n")
}
