// Package handler provides HTTP handlers for the knowledge base service.
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/sentinel-kb/internal/kb/biz"
	"github.com/kart-io/sentinel-kb/internal/model"
	"github.com/kart-io/sentinel-kb/pkg/errors"
	"github.com/kart-io/sentinel-kb/pkg/utils/response"
)

// Handler handles knowledge base HTTP requests.
type Handler struct {
	service *biz.Service
}

// New creates a new Handler.
func New(service *biz.Service) *Handler {
	return &Handler{service: service}
}

// Every handler responds through the pooled envelope the middleware stack
// already uses, so clients see one shape regardless of where a request was
// answered.

func ok(c *gin.Context, data interface{}) {
	response.OK(c, data)
}

func fail(c *gin.Context, err error) {
	response.NewWriter(c).Fail(errors.FromError(err))
}

func badRequest(c *gin.Context, err error) {
	fail(c, errors.ErrInvalidParam.WithMessage("invalid request body: "+err.Error()))
}

// tenant resolves the calling tenant. Single-tenant deployments omit the
// header and share the default scope.
func tenant(c *gin.Context) string {
	if t := c.GetHeader("X-Tenant-ID"); t != "" {
		return t
	}
	return "default"
}

// ============================================================================
// Drafts
// ============================================================================

// CreateDraftRequest stages a new draft.
type CreateDraftRequest struct {
	Name   string          `json:"name" binding:"required"`
	Config *model.KBConfig `json:"config,omitempty"`
}

// CreateDraft stages a new empty draft.
func (h *Handler) CreateDraft(c *gin.Context) {
	var req CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	draft, err := h.service.Drafts.Create(c.Request.Context(), tenant(c), req.Name, req.Config)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, draft)
}

// GetDraft returns a staged draft.
func (h *Handler) GetDraft(c *gin.Context) {
	draft, err := h.service.Drafts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, draft)
}

// UpdateDraft applies a partial patch: rename, replace config, add or remove
// sources. Any touch refreshes the draft TTL.
func (h *Handler) UpdateDraft(c *gin.Context) {
	var patch biz.DraftPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}

	draft, err := h.service.Drafts.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, draft)
}

// DeleteDraft discards a staged draft.
func (h *Handler) DeleteDraft(c *gin.Context) {
	if err := h.service.Drafts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

// PreviewRequest selects which sources to preview. Empty means all ready
// sources.
type PreviewRequest struct {
	SourceIDs []string `json:"source_ids,omitempty"`
}

// PreviewDraft runs dry-run chunking over a draft's ready sources.
func (h *Handler) PreviewDraft(c *gin.Context) {
	var req PreviewRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	result, err := h.service.Preview(c.Request.Context(), c.Param("id"), req.SourceIDs)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

// ValidateDraftResponse reports whether a draft is ready to finalize.
type ValidateDraftResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidateDraft checks a draft without finalizing it. Validation failures
// are part of the payload, not the response status.
func (h *Handler) ValidateDraft(c *gin.Context) {
	draft, err := h.service.Drafts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	if err := h.service.Drafts.Validate(draft); err != nil {
		ok(c, ValidateDraftResponse{Valid: false, Error: err.Error()})
		return
	}
	ok(c, ValidateDraftResponse{Valid: true})
}

// FinalizeDraft converts a draft into a knowledge base and starts its first
// pipeline execution. The response carries the execution id for polling.
func (h *Handler) FinalizeDraft(c *gin.Context) {
	result, err := h.service.Finalizer.Finalize(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

// ============================================================================
// Knowledge bases
// ============================================================================

// ListKnowledgeBasesResponse is a paginated knowledge base listing.
type ListKnowledgeBasesResponse struct {
	Total int64                  `json:"total"`
	Items []*model.KnowledgeBase `json:"items"`
}

// ListKnowledgeBases lists the tenant's knowledge bases.
func (h *Handler) ListKnowledgeBases(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	total, items, err := h.service.ListKnowledgeBases(c.Request.Context(), tenant(c), offset, limit)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, ListKnowledgeBasesResponse{Total: total, Items: items})
}

// GetKnowledgeBase returns one knowledge base.
func (h *Handler) GetKnowledgeBase(c *gin.Context) {
	kb, err := h.service.GetKnowledgeBase(c.Request.Context(), tenant(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, kb)
}

// DeleteKnowledgeBase cascades a knowledge base deletion, vector collection
// first. A vector failure leaves the relational state untouched.
func (h *Handler) DeleteKnowledgeBase(c *gin.Context) {
	if err := h.service.DeleteKnowledgeBase(c.Request.Context(), tenant(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

// ============================================================================
// Documents
// ============================================================================

// ListDocuments lists the documents of a knowledge base.
func (h *Handler) ListDocuments(c *gin.Context) {
	docs, err := h.service.ListDocuments(c.Request.Context(), tenant(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, docs)
}

// GetDocument returns one document.
func (h *Handler) GetDocument(c *gin.Context) {
	doc, err := h.service.GetDocument(c.Request.Context(), tenant(c), c.Param("id"), c.Param("doc_id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, doc)
}

// UpdateDocumentRequest replaces a document's content.
type UpdateDocumentRequest struct {
	Content string `json:"content" binding:"required"`
}

// UpdateDocumentResponse reports the document and, when content actually
// changed, the reprocessing execution to poll.
type UpdateDocumentResponse struct {
	Document  *model.Document          `json:"document"`
	Execution *model.PipelineExecution `json:"execution,omitempty"`
}

// UpdateDocument replaces document content. Unchanged content is a no-op and
// returns no execution.
func (h *Handler) UpdateDocument(c *gin.Context) {
	var req UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	doc, exec, err := h.service.UpdateDocument(c.Request.Context(), tenant(c), c.Param("id"), c.Param("doc_id"), req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, UpdateDocumentResponse{Document: doc, Execution: exec})
}

// DeleteDocument removes a document, vectors first. When the vector index is
// unreachable the document parks for a background retry and the call still
// succeeds.
func (h *Handler) DeleteDocument(c *gin.Context) {
	if err := h.service.DeleteDocument(c.Request.Context(), tenant(c), c.Param("id"), c.Param("doc_id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

// ============================================================================
// Executions
// ============================================================================

// ListExecutions lists the executions of a knowledge base, newest first.
func (h *Handler) ListExecutions(c *gin.Context) {
	execs, err := h.service.ListExecutions(c.Request.Context(), tenant(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, execs)
}

// GetExecution returns a pipeline execution for polling.
func (h *Handler) GetExecution(c *gin.Context) {
	exec, err := h.service.GetExecution(c.Request.Context(), tenant(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, exec)
}

// CancelExecution requests cancellation of a running execution. Documents
// stop at their next stage boundary.
func (h *Handler) CancelExecution(c *gin.Context) {
	if err := h.service.CancelExecution(c.Request.Context(), tenant(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}
