package validator

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Custom validation tags
const (
	TagCollection    = "collection"    // Vector collection name (letter/underscore start, word chars)
	TagChunkStrategy = "chunkstrategy" // Chunking strategy (fixed, heading, semantic)
	TagSafeString    = "safestring"    // Safe string (no SQL injection, XSS patterns)
	TagNoWhitespace  = "nowhitespace"  // No whitespace characters
	TagTrimmed       = "trimmed"       // String should be trimmed (no leading/trailing spaces)
	TagSlug          = "slug"          // URL slug (lowercase alphanumeric and hyphens)
)

var (
	// collectionRegex matches Milvus collection naming rules: start with a
	// letter or underscore, then word characters, 255 chars max.
	collectionRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,254}$`)

	slugRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

	// chunkStrategies are the strategies the chunker understands.
	chunkStrategies = map[string]bool{
		"fixed":    true,
		"heading":  true,
		"semantic": true,
	}

	// Dangerous patterns for safe string validation
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:",
		"SELECT ", "INSERT ", "UPDATE ", "DELETE ", "DROP ",
		"UNION ", "OR 1=1", "' OR '", "-- ", "/*", "*/",
	}
)

// registerCustomRules registers all custom validation rules.
func (v *Validator) registerCustomRules() {
	_ = v.validate.RegisterValidation(TagCollection, validateCollection)
	_ = v.validate.RegisterValidation(TagChunkStrategy, validateChunkStrategy)
	_ = v.validate.RegisterValidation(TagSafeString, validateSafeString)
	_ = v.validate.RegisterValidation(TagNoWhitespace, validateNoWhitespace)
	_ = v.validate.RegisterValidation(TagTrimmed, validateTrimmed)
	_ = v.validate.RegisterValidation(TagSlug, validateSlug)
}

// validateCollection validates vector collection names.
func validateCollection(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	return collectionRegex.MatchString(value)
}

// validateChunkStrategy validates the chunking strategy name.
func validateChunkStrategy(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return chunkStrategies[value]
}

// validateSafeString checks for potentially dangerous patterns.
func validateSafeString(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}

	upperValue := strings.ToUpper(value)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(upperValue, strings.ToUpper(pattern)) {
			return false
		}
	}

	return true
}

// validateNoWhitespace validates that string contains no whitespace.
func validateNoWhitespace(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}

	for _, char := range value {
		if unicode.IsSpace(char) {
			return false
		}
	}

	return true
}

// validateTrimmed validates that string has no leading/trailing whitespace.
func validateTrimmed(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}

	return value == strings.TrimSpace(value)
}

// validateSlug validates URL slug format.
func validateSlug(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return slugRegex.MatchString(value)
}
