package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type validationTestCase struct {
	name    string
	value   string
	wantErr bool
}

// runValidationTests 用同一个校验器跑完一个 tag 的所有用例。
func runValidationTests(t *testing.T, tag string, tests []validationTestCase) {
	t.Helper()
	v := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateVar(tt.value, tag)
			if tt.wantErr {
				assert.Error(t, err, "tag %s value %q", tag, tt.value)
			} else {
				assert.NoError(t, err, "tag %s value %q", tag, tt.value)
			}
		})
	}
}
