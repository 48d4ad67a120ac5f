package validator

import (
	"strings"
	"testing"
)

func TestCollectionValidation(t *testing.T) {
	tests := []validationTestCase{
		{"simple", "kb_docs", false},
		{"underscore start", "_kb_internal", false},
		{"mixed case", "KbDocs42", false},
		{"single letter", "k", false},
		{"max length", "c" + strings.Repeat("x", 254), false},
		{"digit start", "1kb", true},
		{"hyphen", "kb-docs", true},
		{"dot", "kb.docs", true},
		{"space", "kb docs", true},
		{"too long", "c" + strings.Repeat("x", 255), true},
		{"empty passes", "", false},
	}
	runValidationTests(t, TagCollection, tests)
}

func TestChunkStrategyValidation(t *testing.T) {
	tests := []validationTestCase{
		{"fixed", "fixed", false},
		{"heading", "heading", false},
		{"semantic", "semantic", false},
		{"unknown", "sliding", true},
		{"case sensitive", "Fixed", true},
		{"empty passes", "", false},
	}
	runValidationTests(t, TagChunkStrategy, tests)
}

func TestSafeStringValidation(t *testing.T) {
	tests := []validationTestCase{
		{"plain title", "Quarterly report", false},
		{"url", "https://docs.example.com/guide", false},
		{"cjk", "知识库文档", false},
		{"script tag", "<script>alert(1)</script>", true},
		{"javascript scheme", "javascript:alert(1)", true},
		{"sql select", "SELECT * FROM documents", true},
		{"sql injection", "' OR '1'='1", true},
		{"sql comment", "name -- drop", true},
		{"empty passes", "", false},
	}
	runValidationTests(t, TagSafeString, tests)
}

func TestNoWhitespaceValidation(t *testing.T) {
	tests := []validationTestCase{
		{"plain", "draft-01H9X", false},
		{"space", "draft 01", true},
		{"tab", "draft\t01", true},
		{"newline", "draft\n01", true},
		{"empty passes", "", false},
	}
	runValidationTests(t, TagNoWhitespace, tests)
}

func TestTrimmedValidation(t *testing.T) {
	tests := []validationTestCase{
		{"trimmed", "Product Handbook", false},
		{"inner spaces ok", "Product  Handbook", false},
		{"leading space", " Product Handbook", true},
		{"trailing space", "Product Handbook ", true},
		{"trailing newline", "Product Handbook\n", true},
		{"empty passes", "", false},
	}
	runValidationTests(t, TagTrimmed, tests)
}

func TestSlugValidation(t *testing.T) {
	tests := []validationTestCase{
		{"simple", "product-handbook", false},
		{"numeric", "faq-2026", false},
		{"single word", "handbook", false},
		{"uppercase", "Product-Handbook", true},
		{"underscore", "product_handbook", true},
		{"double hyphen", "product--handbook", true},
		{"leading hyphen", "-handbook", true},
		{"empty passes", "", false},
	}
	runValidationTests(t, TagSlug, tests)
}
