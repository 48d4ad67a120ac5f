package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// draftRequest mirrors the shape of an ingestion draft create request.
type draftRequest struct {
	Name         string `validate:"required,trimmed,safestring"`
	SourceURL    string `validate:"required,url"`
	Collection   string `validate:"omitempty,collection"`
	Strategy     string `validate:"omitempty,chunkstrategy"`
	ChunkSize    int    `validate:"gte=100,lte=8000"`
	ChunkOverlap int    `validate:"gte=0"`
}

func validDraftRequest() draftRequest {
	return draftRequest{
		Name:         "Product Handbook",
		SourceURL:    "https://docs.example.com/handbook",
		Collection:   "kb_handbook",
		Strategy:     "fixed",
		ChunkSize:    1000,
		ChunkOverlap: 200,
	}
}

func TestGlobalIsSingleton(t *testing.T) {
	v1 := Global()
	require.NotNil(t, v1)
	assert.Same(t, v1, Global())

	original := Global()
	custom := New()
	SetGlobal(custom)
	assert.Same(t, custom, Global())
	SetGlobal(original)
}

func TestNewRegistersTranslators(t *testing.T) {
	v := New()
	require.NotNil(t, v)
	assert.NotNil(t, v.GetTranslator(LangEN))
	assert.NotNil(t, v.GetTranslator(LangZH))
	assert.Nil(t, v.GetTranslator("fr"))
}

func TestValidateStruct(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		mutate  func(*draftRequest)
		wantErr bool
	}{
		{"valid request", func(r *draftRequest) {}, false},
		{"missing name", func(r *draftRequest) { r.Name = "" }, true},
		{"untrimmed name", func(r *draftRequest) { r.Name = " Product Handbook" }, true},
		{"script in name", func(r *draftRequest) { r.Name = "<script>x</script>" }, true},
		{"bad url", func(r *draftRequest) { r.SourceURL = "not a url" }, true},
		{"bad collection", func(r *draftRequest) { r.Collection = "1bad-name" }, true},
		{"empty collection ok", func(r *draftRequest) { r.Collection = "" }, false},
		{"unknown strategy", func(r *draftRequest) { r.Strategy = "sliding" }, true},
		{"chunk size too small", func(r *draftRequest) { r.ChunkSize = 10 }, true},
		{"negative overlap", func(r *draftRequest) { r.ChunkOverlap = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validDraftRequest()
			tt.mutate(&req)
			err := v.Validate(req)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateWithLang(t *testing.T) {
	v := New()

	req := validDraftRequest()
	req.Name = ""
	req.Strategy = "sliding"

	verrs := v.ValidateWithLang(req, LangEN)
	require.NotNil(t, verrs)
	assert.True(t, verrs.HasErrors())
	assert.Equal(t, 2, verrs.Count())

	zhErrs := v.ValidateWithLang(req, LangZH)
	require.NotNil(t, zhErrs)
	assert.Equal(t, 2, zhErrs.Count())
	assert.NotEqual(t, verrs.First(), zhErrs.First(), "translated messages differ by language")

	// Valid input yields no error object.
	assert.Nil(t, v.ValidateWithLang(validDraftRequest(), LangEN))
}

func TestValidateVar(t *testing.T) {
	v := New()

	assert.NoError(t, v.ValidateVar("kb_docs", TagCollection))
	assert.Error(t, v.ValidateVar("kb-docs", TagCollection))

	verrs := v.ValidateVarWithLang("kb-docs", TagCollection, LangEN)
	require.NotNil(t, verrs)
	assert.True(t, verrs.HasErrors())
}

func TestSetTagName(t *testing.T) {
	v := New()
	v.SetTagName("binding")

	type req struct {
		Name string `binding:"required"`
	}
	assert.Error(t, v.Validate(req{}))
	assert.NoError(t, v.Validate(req{Name: "draft"}))
}

func TestRegisterValidation(t *testing.T) {
	v := New()

	err := v.RegisterValidation("evenpages", func(fl validator.FieldLevel) bool {
		return fl.Field().Int()%2 == 0
	})
	require.NoError(t, err)

	assert.NoError(t, v.ValidateVar(4, "evenpages"))
	assert.Error(t, v.ValidateVar(3, "evenpages"))
}

func TestRegisterValidationWithTranslation(t *testing.T) {
	v := New()

	err := v.RegisterValidationWithTranslation("maxdepth",
		func(fl validator.FieldLevel) bool {
			return fl.Field().Int() <= 10
		},
		map[string]string{
			LangEN: "{0} exceeds the crawl depth limit",
			LangZH: "{0}超过抓取深度限制",
		},
	)
	require.NoError(t, err)

	type crawl struct {
		Depth int `validate:"maxdepth"`
	}
	verrs := v.ValidateWithLang(crawl{Depth: 12}, LangEN)
	require.NotNil(t, verrs)
	assert.Contains(t, verrs.First(), "crawl depth limit")
}

func TestPackageLevelHelpers(t *testing.T) {
	assert.Error(t, Struct(draftRequest{}))
	assert.NoError(t, Struct(validDraftRequest()))

	assert.NoError(t, Var("product-handbook", TagSlug))
	assert.Error(t, Var("Product Handbook", TagSlug))

	verrs := StructWithLang(draftRequest{}, LangEN)
	require.NotNil(t, verrs)
	assert.True(t, verrs.HasErrors())

	assert.NotNil(t, VarWithLang("bad name", TagSlug, LangZH))
}

func TestEngineExposed(t *testing.T) {
	v := New()
	assert.NotNil(t, v.Engine())
}
