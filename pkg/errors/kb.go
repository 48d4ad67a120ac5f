package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

func init() {
	RegisterService(ServiceKB, "sentinel-kb")
}

// Knowledge-base service errors (service code 20).
var (
	// ErrDraftNotFound indicates the draft does not exist or its TTL expired.
	ErrDraftNotFound = NewNotFoundError(ServiceKB, 0).
				Message("Draft not found or expired", "草稿不存在或已过期").
				MustBuild()

	// ErrSourceNotFound indicates the source id is not part of the draft.
	ErrSourceNotFound = NewNotFoundError(ServiceKB, 1).
				Message("Source not found in draft", "草稿中不存在该数据源").
				MustBuild()

	// ErrKnowledgeBaseNotFound indicates the knowledge base does not exist.
	ErrKnowledgeBaseNotFound = NewNotFoundError(ServiceKB, 2).
					Message("Knowledge base not found", "知识库不存在").
					MustBuild()

	// ErrDocumentNotFound indicates the document does not exist.
	ErrDocumentNotFound = NewNotFoundError(ServiceKB, 3).
				Message("Document not found", "文档不存在").
				MustBuild()

	// ErrExecutionNotFound indicates the pipeline execution does not exist.
	ErrExecutionNotFound = NewNotFoundError(ServiceKB, 4).
				Message("Pipeline execution not found", "流水线执行记录不存在").
				MustBuild()

	// ErrDraftInvalid indicates the draft configuration failed validation.
	ErrDraftInvalid = NewRequestError(ServiceKB, 0).
			Message("Draft validation failed", "草稿校验失败").
			MustBuild()

	// ErrNoReadySource indicates finalization was attempted with zero ready sources.
	ErrNoReadySource = NewRequestError(ServiceKB, 1).
				Message("Draft has no ready source", "草稿没有就绪的数据源").
				MustBuild()

	// ErrContentUnparsable indicates the content yields no structural elements.
	// This is terminal for the document; retrying cannot help.
	ErrContentUnparsable = NewBuilder(ServiceKB, CategoryRequest, 2).
				HTTP(http.StatusUnprocessableEntity).
				GRPC(codes.InvalidArgument).
				Message("Content could not be parsed", "内容无法解析").
				MustBuild()

	// ErrCollaboratorUnavailable indicates an external collaborator
	// (extractor, embedder, vector index) failed transiently.
	ErrCollaboratorUnavailable = NewNetworkError(ServiceKB, 0).
					Message("External collaborator unavailable", "外部依赖服务不可用").
					MustBuild()

	// ErrEmbeddingTimeout indicates an embedding batch exceeded its deadline.
	ErrEmbeddingTimeout = NewTimeoutError(ServiceKB, 0).
				Message("Embedding request timed out", "向量化请求超时").
				MustBuild()

	// ErrVectorDeleteFailed indicates vector index deletion failed. The
	// affected rows stay in pending_deletion until the sweeper clears them.
	ErrVectorDeleteFailed = NewInternalError(ServiceKB, 0).
				Message("Vector index deletion failed", "向量索引删除失败").
				MustBuild()

	// ErrPipelineCancelled indicates the execution was cancelled between stages.
	ErrPipelineCancelled = NewConflictError(ServiceKB, 0).
				Message("Pipeline execution cancelled", "流水线执行已取消").
				MustBuild()
)

// IsTransient reports whether the error is worth retrying. Network, timeout,
// cache, and database categories are retryable; everything else, including
// plain non-Errno errors, is treated as terminal. Collaborator clients wrap
// their transport failures as ErrCollaboratorUnavailable so they land in the
// retryable set.
func IsTransient(err error) bool {
	e, ok := err.(*Errno)
	if !ok {
		return false
	}
	switch GetCategory(e.Code) {
	case CategoryNetwork, CategoryTimeout, CategoryCache, CategoryDatabase:
		return true
	}
	return false
}
