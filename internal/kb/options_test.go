package kb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestOptionsDefaultsAreValid(t *testing.T) {
	require.NoError(t, NewIngestOptions().Validate())
}

func TestIngestOptionsValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*IngestOptions)
		wantErr string
	}{
		{
			name:    "unknown staging backend",
			mutate:  func(o *IngestOptions) { o.StagingBackend = "etcd" },
			wantErr: "staging-backend",
		},
		{
			name:    "unknown ready policy",
			mutate:  func(o *IngestOptions) { o.ReadyPolicy = "most" },
			wantErr: "ready-policy",
		},
		{
			name:    "non-positive draft ttl",
			mutate:  func(o *IngestOptions) { o.DraftTTL = 0 },
			wantErr: "draft-ttl",
		},
		{
			name:    "non-positive sweep interval",
			mutate:  func(o *IngestOptions) { o.SweepInterval = -time.Second },
			wantErr: "sweep-interval",
		},
		{
			// 预算含首次尝试,0 会让阶段一次都不跑
			name:    "zero attempt budget",
			mutate:  func(o *IngestOptions) { o.MaxRetries = 0 },
			wantErr: "max-retries",
		},
		{
			name:    "negative attempt budget",
			mutate:  func(o *IngestOptions) { o.MaxRetries = -3 },
			wantErr: "max-retries",
		},
		{
			name:    "no workers",
			mutate:  func(o *IngestOptions) { o.Workers = 0 },
			wantErr: "workers",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := NewIngestOptions()
			tc.mutate(opts)
			err := opts.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
