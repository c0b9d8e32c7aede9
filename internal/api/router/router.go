// Package router wires the REST routes.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/wavelens/gradient/internal/api/handler"
	"github.com/wavelens/gradient/internal/api/middleware"
	"github.com/wavelens/gradient/internal/service"
	"github.com/wavelens/gradient/pkg/responses"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth         *handler.AuthHandler
	User         *handler.UserHandler
	Organization *handler.OrganizationHandler
	Project      *handler.ProjectHandler
	Evaluation   *handler.EvaluationHandler
	Build        *handler.BuildHandler
	Server       *handler.ServerHandler
	Cache        *handler.CacheHandler
}

// Setup builds the gin engine with the full route table.
func Setup(mode string, authService *service.AuthService, h Handlers) *gin.Engine {
	gin.SetMode(mode)

	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logger(), middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		responses.Success(c, "ok")
	})

	v1 := r.Group("/api/v1")

	v1.POST("/auth/register", h.Auth.Register)
	v1.POST("/auth/login", h.Auth.Login)
	v1.POST("/auth/basic/register", h.Auth.Register)
	v1.POST("/auth/basic/login", h.Auth.Login)

	authorized := v1.Group("")
	authorized.Use(middleware.Auth(authService))
	{
		user := authorized.Group("/user")
		{
			user.GET("", h.User.Me)
			user.GET("/keys", h.User.ListAPIKeys)
			user.POST("/keys", h.User.CreateAPIKey)
			user.DELETE("/keys/:name", h.User.DeleteAPIKey)
		}

		orgs := authorized.Group("/orgs")
		{
			orgs.POST("", h.Organization.Create)
			orgs.PUT("", h.Organization.Create)
			orgs.GET("", h.Organization.List)
			orgs.GET("/:org", h.Organization.Get)
			orgs.PATCH("/:org", h.Organization.Update)
			orgs.DELETE("/:org", h.Organization.Delete)

			orgs.GET("/:org/ssh", h.Organization.GetSSHKey)
			orgs.POST("/:org/ssh", h.Organization.RotateSSHKey)
			orgs.DELETE("/:org/ssh", h.Organization.RemoveSSHKey)

			orgs.POST("/:org/projects", h.Project.Create)
			orgs.GET("/:org/projects", h.Project.List)
			orgs.GET("/:org/projects/:project", h.Project.Get)
			orgs.PATCH("/:org/projects/:project", h.Project.Update)
			orgs.DELETE("/:org/projects/:project", h.Project.Delete)
			orgs.POST("/:org/projects/:project/evaluate", h.Project.Evaluate)

			orgs.POST("/:org/servers", h.Server.Register)
			orgs.GET("/:org/servers", h.Server.List)
			orgs.GET("/:org/servers/:server", h.Server.Get)
			orgs.PATCH("/:org/servers/:server", h.Server.Update)
			orgs.DELETE("/:org/servers/:server", h.Server.Delete)
			orgs.POST("/:org/servers/:server/check", h.Server.Check)
			orgs.POST("/:org/servers/:server/active", h.Server.Activate)
			orgs.DELETE("/:org/servers/:server/active", h.Server.Deactivate)

			orgs.GET("/:org/caches", h.Cache.ListForOrganization)
			orgs.POST("/:org/caches/:cache", h.Cache.Subscribe)
			orgs.DELETE("/:org/caches/:cache", h.Cache.Unsubscribe)
			orgs.POST("/:org/subscribe-cache/:cache", h.Cache.Subscribe)
			orgs.DELETE("/:org/subscribe-cache/:cache", h.Cache.Unsubscribe)
			orgs.GET("/:org/blobs/:hash", h.Cache.LookupBlob)
		}

		// Flat aliases for the org-scoped resources above.
		projects := authorized.Group("/projects")
		{
			projects.PUT("/:org", h.Project.Create)
			projects.GET("/:org", h.Project.List)
			projects.GET("/:org/:project", h.Project.Get)
			projects.PATCH("/:org/:project", h.Project.Update)
			projects.DELETE("/:org/:project", h.Project.Delete)
			projects.POST("/:org/:project/evaluate", h.Project.Evaluate)
		}

		servers := authorized.Group("/servers")
		{
			servers.PUT("/:org", h.Server.Register)
			servers.GET("/:org", h.Server.List)
			servers.GET("/:org/:server", h.Server.Get)
			servers.PATCH("/:org/:server", h.Server.Update)
			servers.DELETE("/:org/:server", h.Server.Delete)
			servers.POST("/:org/:server/check", h.Server.Check)
			servers.POST("/:org/:server/active", h.Server.Activate)
			servers.DELETE("/:org/:server/active", h.Server.Deactivate)
		}

		evaluations := authorized.Group("/evaluations")
		{
			evaluations.GET("/:id", h.Evaluation.Get)
			evaluations.GET("/:id/builds", h.Evaluation.ListBuilds)
			evaluations.POST("/:id/abort", h.Evaluation.Abort)
			evaluations.POST("/:id", h.Evaluation.Action)
		}

		builds := authorized.Group("/builds")
		{
			builds.GET("/:id", h.Build.Get)
			builds.GET("/:id/log", h.Build.GetLog)
		}

		caches := authorized.Group("/caches")
		{
			caches.POST("", h.Cache.Create)
			caches.PUT("", h.Cache.Create)
			caches.GET("", h.Cache.List)
			caches.GET("/:cache", h.Cache.Get)
			caches.PATCH("/:cache", h.Cache.Update)
			caches.DELETE("/:cache", h.Cache.Delete)
			caches.POST("/:cache/blobs", h.Cache.UploadBlob)
			caches.GET("/:cache/blobs/:hash", h.Cache.GetBlob)
		}
	}

	return r
}
