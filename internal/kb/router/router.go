// Package router provides knowledge base service routing.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-kb/internal/kb/handler"
	"github.com/kart-io/sentinel-kb/pkg/infra/middleware"
	"github.com/kart-io/sentinel-kb/pkg/infra/server"
	"github.com/kart-io/sentinel-kb/pkg/security/auth"
	"github.com/kart-io/sentinel-kb/pkg/security/auth/jwt"
	"github.com/kart-io/sentinel-kb/pkg/security/authz"
)

// Register registers the knowledge base routes. A nil jwtAuth leaves the API
// unauthenticated, which is the default behind the platform gateway. With
// auth enabled, the authorizer checks the token role against the requested
// resource and action.
func Register(mgr *server.Manager, h *handler.Handler, jwtAuth *jwt.JWT, authorizer authz.Authorizer) error {
	logger.Info("Registering knowledge base routes...")

	httpServer := mgr.HTTPServer()
	if httpServer == nil {
		return nil
	}
	engine := httpServer.Engine()

	v1 := engine.Group("/v1")
	if jwtAuth != nil {
		v1.Use(middleware.AuthWithOptions(*middleware.NewAuthOptions(), jwtAuth, nil, nil))
		if authorizer != nil {
			v1.Use(middleware.AuthzWithOptions(*middleware.NewAuthzOptions(), authorizer, nil, nil, roleSubject, nil))
		}
	}
	{
		drafts := v1.Group("/drafts")
		{
			drafts.POST("", h.CreateDraft)
			drafts.GET("/:id", h.GetDraft)
			drafts.PATCH("/:id", h.UpdateDraft)
			drafts.DELETE("/:id", h.DeleteDraft)
			drafts.POST("/:id/preview", h.PreviewDraft)
			drafts.POST("/:id/validate", h.ValidateDraft)
			drafts.POST("/:id/finalize", h.FinalizeDraft)
		}

		kbs := v1.Group("/knowledge-bases")
		{
			kbs.GET("", h.ListKnowledgeBases)
			kbs.GET("/:id", h.GetKnowledgeBase)
			kbs.DELETE("/:id", h.DeleteKnowledgeBase)

			kbs.GET("/:id/documents", h.ListDocuments)
			kbs.GET("/:id/documents/:doc_id", h.GetDocument)
			kbs.PUT("/:id/documents/:doc_id", h.UpdateDocument)
			kbs.DELETE("/:id/documents/:doc_id", h.DeleteDocument)

			kbs.GET("/:id/executions", h.ListExecutions)
		}

		executions := v1.Group("/executions")
		{
			executions.GET("/:id", h.GetExecution)
			executions.POST("/:id/cancel", h.CancelExecution)
		}
	}

	logger.Info("HTTP routes registered")
	return nil
}

// roleSubject resolves the authorization subject from the verified claims.
// Service tokens carry their role in the "role" claim; tokens without one
// are authorized by their subject directly.
func roleSubject(c *gin.Context) string {
	claims := auth.ClaimsFromContext(c.Request.Context())
	if claims == nil {
		return ""
	}
	if role := claims.GetExtraString("role"); role != "" {
		return role
	}
	return claims.Subject
}
