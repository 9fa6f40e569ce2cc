package stubapi

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

// Handler builds the routing table of the fake API.
func (s *Server) Handler() fasthttp.RequestHandler {
	r := router.New()
	auth := s.authenticate

	r.POST("/api/auth/login", s.route("POST /api/auth/login", s.login))
	r.POST("/api/auth/register", s.route("POST /api/auth/register", s.register))
	r.GET("/api/invite/{token}", s.route("GET /api/invite/{token}", s.acceptInvitation))

	r.PUT("/api/users/me/avatar", s.route("PUT /api/users/me/avatar", auth(s.updateAvatar)))

	r.GET("/api/groups", s.route("GET /api/groups", auth(s.adminGroups)))
	r.POST("/api/groups", s.route("POST /api/groups", auth(s.createGroup)))
	r.GET("/api/groups/me", s.route("GET /api/groups/me", auth(s.myGroups)))
	r.PUT("/api/groups/{groupId}", s.route("PUT /api/groups/{groupId}", auth(s.updateGroup)))
	r.DELETE("/api/groups/{groupId}", s.route("DELETE /api/groups/{groupId}", auth(s.deleteGroup)))
	r.GET("/api/groups/{groupId}/users", s.route("GET /api/groups/{groupId}/users", auth(s.groupUsers)))
	r.POST("/api/groups/{groupId}/invite", s.route("POST /api/groups/{groupId}/invite", auth(s.invite)))
	r.GET("/api/groups/{groupId}/invitations", s.route("GET /api/groups/{groupId}/invitations", auth(s.invitationsOf)))

	r.GET("/api/groups/{groupId}/wishes", s.route("GET /api/groups/{groupId}/wishes", auth(s.groupWishes)))
	r.POST("/api/groups/{groupId}/wishes", s.route("POST /api/groups/{groupId}/wishes", auth(s.addWish)))
	r.GET("/api/groups/{groupId}/wishes/me", s.route("GET /api/groups/{groupId}/wishes/me", auth(s.myWishes)))
	r.GET("/api/groups/{groupId}/wishes/users/{userId}", s.route("GET /api/groups/{groupId}/wishes/users/{userId}", auth(s.userWishes)))
	r.PUT("/api/groups/{groupId}/wishes/{wishId}", s.route("PUT /api/groups/{groupId}/wishes/{wishId}", auth(s.updateWish)))
	r.DELETE("/api/groups/{groupId}/wishes/{wishId}", s.route("DELETE /api/groups/{groupId}/wishes/{wishId}", auth(s.deleteWish)))
	r.POST("/api/groups/{groupId}/wishes/{wishId}/reserve", s.route("POST /api/groups/{groupId}/wishes/{wishId}/reserve", auth(s.reserveWish)))
	r.DELETE("/api/groups/{groupId}/wishes/{wishId}/reserve", s.route("DELETE /api/groups/{groupId}/wishes/{wishId}/reserve", auth(s.unreserveWish)))

	return s.logRequests(r.Handler)
}

// route counts hits and applies forced statuses before delegating.
func (s *Server) route(name string, next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		s.mu.Lock()
		s.hits[name]++
		status, forced := s.forced[name]
		s.mu.Unlock()

		if forced {
			respondError(ctx, status, fasthttp.StatusMessage(status))
			return
		}
		next(ctx)
	}
}
