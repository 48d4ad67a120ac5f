package biz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-kb/pkg/errors"
)

func TestParserParse(t *testing.T) {
	parser := NewParser()

	t.Run("structured content", func(t *testing.T) {
		elements, err := parser.Parse("intro\n\n# Setup\n\ninstall it\n\n# Usage\n\nrun it")
		require.NoError(t, err)
		require.Len(t, elements, 3)

		assert.Equal(t, "", elements[0].Section)
		assert.Equal(t, "intro", elements[0].Text)
		assert.Equal(t, "Setup", elements[1].Section)
		assert.Equal(t, "install it", elements[1].Text)
		assert.Equal(t, "Usage", elements[2].Section)
	})

	t.Run("plain text", func(t *testing.T) {
		elements, err := parser.Parse("no structure here")
		require.NoError(t, err)
		require.Len(t, elements, 1)
		assert.Equal(t, "no structure here", elements[0].Text)
	})

	t.Run("empty content is unparsable", func(t *testing.T) {
		_, err := parser.Parse("")
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrContentUnparsable.Code))
	})

	t.Run("whitespace only is unparsable", func(t *testing.T) {
		_, err := parser.Parse("  \n\n\t  ")
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrContentUnparsable.Code))
	})
}

func TestParserJoin(t *testing.T) {
	elements := []Element{
		{Section: "A", Text: "first"},
		{Section: "B", Text: "second"},
	}
	assert.Equal(t, "first\n\nsecond", Join(elements))
}
