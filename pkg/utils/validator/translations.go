package validator

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

// registerCustomTranslations registers translations for custom validation rules.
func (v *Validator) registerCustomTranslations() {
	// Register English translations
	enTrans := v.GetTranslator(LangEN)
	if enTrans != nil {
		v.registerEnglishTranslations(enTrans)
	}

	// Register Chinese translations
	zhTrans := v.GetTranslator(LangZH)
	if zhTrans != nil {
		v.registerChineseTranslations(zhTrans)
	}
}

// registerEnglishTranslations registers English translations for custom rules.
func (v *Validator) registerEnglishTranslations(trans ut.Translator) {
	translations := map[string]string{
		TagCollection:    "{0} must be a valid collection name (start with a letter or underscore, word characters only)",
		TagChunkStrategy: "{0} must be one of: fixed, heading, semantic",
		TagSafeString:    "{0} contains potentially unsafe content",
		TagNoWhitespace:  "{0} must not contain whitespace characters",
		TagTrimmed:       "{0} must not have leading or trailing spaces",
		TagSlug:          "{0} must be a valid URL slug (lowercase letters, numbers, and hyphens)",
	}

	for tag, message := range translations {
		registerTranslation(v.validate, trans, tag, message)
	}
}

// registerChineseTranslations registers Chinese translations for custom rules.
func (v *Validator) registerChineseTranslations(trans ut.Translator) {
	translations := map[string]string{
		TagCollection:    "{0}必须是有效的集合名称（以字母或下划线开头，仅限字母数字和下划线）",
		TagChunkStrategy: "{0}必须是以下之一：fixed、heading、semantic",
		TagSafeString:    "{0}包含潜在的不安全内容",
		TagNoWhitespace:  "{0}不能包含空白字符",
		TagTrimmed:       "{0}不能有前导或尾随空格",
		TagSlug:          "{0}必须是有效的URL别名（小写字母、数字和连字符）",
	}

	for tag, message := range translations {
		registerTranslation(v.validate, trans, tag, message)
	}
}

// registerTranslation registers a single translation.
func registerTranslation(validate *validator.Validate, trans ut.Translator, tag, message string) {
	_ = validate.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, message, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(tag, fe.Field())
			return t
		},
	)
}

// TranslationOverride represents a translation override for a specific tag.
type TranslationOverride struct {
	Tag     string
	Message string
}

// RegisterTranslations registers multiple translation overrides for a language.
func (v *Validator) RegisterTranslations(lang string, overrides []TranslationOverride) {
	trans := v.GetTranslator(lang)
	if trans == nil {
		return
	}

	for _, override := range overrides {
		registerTranslation(v.validate, trans, override.Tag, override.Message)
	}
}

// RegisterTranslation registers a single translation override.
func (v *Validator) RegisterTranslation(lang, tag, message string) {
	trans := v.GetTranslator(lang)
	if trans == nil {
		return
	}

	registerTranslation(v.validate, trans, tag, message)
}
