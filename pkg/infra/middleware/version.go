package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
	"github.com/kart-io/version"
)

// VersionResponse represents the version endpoint response.
type VersionResponse struct {
	ServiceName  string `json:"service_name,omitempty"`
	GitVersion   string `json:"git_version"`
	GitCommit    string `json:"git_commit,omitempty"`
	GitBranch    string `json:"git_branch,omitempty"`
	GitTreeState string `json:"git_tree_state,omitempty"`
	BuildDate    string `json:"build_date,omitempty"`
	GoVersion    string `json:"go_version,omitempty"`
	Compiler     string `json:"compiler,omitempty"`
	Platform     string `json:"platform,omitempty"`
}

// RegisterVersionRoutes 注册版本端点,HideDetails 打开时只回 git 版本号。
func RegisterVersionRoutes(engine *gin.Engine, opts mwopts.VersionOptions) {
	if !opts.Enabled {
		return
	}
	if opts.Path == "" {
		opts.Path = "/version"
	}

	engine.GET(opts.Path, func(c *gin.Context) {
		info := version.Get()

		resp := VersionResponse{GitVersion: info.GitVersion}
		if !opts.HideDetails {
			resp.ServiceName = info.ServiceName
			resp.GitCommit = info.GitCommit
			resp.GitBranch = info.GitBranch
			resp.GitTreeState = info.GitTreeState
			resp.BuildDate = info.BuildDate
			resp.GoVersion = info.GoVersion
			resp.Compiler = info.Compiler
			resp.Platform = info.Platform
		}
		c.JSON(http.StatusOK, resp)
	})
}
