package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestKBServiceRegistered(t *testing.T) {
	name, ok := GetServiceName(ServiceKB)
	if !ok || name != "sentinel-kb" {
		t.Errorf("GetServiceName(ServiceKB) = %q, %v; want %q, true", name, ok, "sentinel-kb")
	}
}

func TestKBErrorCodes(t *testing.T) {
	tests := []struct {
		name     string
		errno    *Errno
		wantHTTP int
	}{
		{"draft_not_found", ErrDraftNotFound, http.StatusNotFound},
		{"source_not_found", ErrSourceNotFound, http.StatusNotFound},
		{"kb_not_found", ErrKnowledgeBaseNotFound, http.StatusNotFound},
		{"document_not_found", ErrDocumentNotFound, http.StatusNotFound},
		{"execution_not_found", ErrExecutionNotFound, http.StatusNotFound},
		{"draft_invalid", ErrDraftInvalid, http.StatusBadRequest},
		{"no_ready_source", ErrNoReadySource, http.StatusBadRequest},
		{"content_unparsable", ErrContentUnparsable, http.StatusUnprocessableEntity},
		{"collaborator_unavailable", ErrCollaboratorUnavailable, http.StatusServiceUnavailable},
		{"embedding_timeout", ErrEmbeddingTimeout, http.StatusGatewayTimeout},
		{"vector_delete_failed", ErrVectorDeleteFailed, http.StatusInternalServerError},
		{"pipeline_cancelled", ErrPipelineCancelled, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if GetService(tt.errno.Code) != ServiceKB {
				t.Errorf("service = %d, want %d", GetService(tt.errno.Code), ServiceKB)
			}
			if tt.errno.HTTP != tt.wantHTTP {
				t.Errorf("HTTP = %d, want %d", tt.errno.HTTP, tt.wantHTTP)
			}
			if _, ok := Lookup(tt.errno.Code); !ok {
				t.Error("kb error should be registered")
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"collaborator_unavailable", ErrCollaboratorUnavailable, true},
		{"embedding_timeout", ErrEmbeddingTimeout, true},
		{"cache_connection", ErrCacheConnection, true},
		{"db_connection", ErrDBConnection, true},
		{"content_unparsable", ErrContentUnparsable, false},
		{"draft_invalid", ErrDraftInvalid, false},
		{"not_found", ErrDocumentNotFound, false},
		{"wrapped_cause", ErrCollaboratorUnavailable.WithCause(fmt.Errorf("dial tcp: refused")), true},
		{"plain_error", fmt.Errorf("plain"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}
