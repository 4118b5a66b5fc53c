package main

import (
	"fmt"
	"net/http"

	"github.com/replydesk/backend/internal/middleware"
	"github.com/replydesk/backend/pkg/router"
	"github.com/rs/cors"
	"github.com/urfave/cli/v2"
)

func (s *srv) startApi(cctx *cli.Context) error {
	s.loadConfig(cctx)
	s.loadLogger()
	s.loadDatabase()
	s.loadEndpoint()
	s.loadSessionStore()
	s.loadRepos()
	s.loadDomains()
	s.loadRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   s.configs.ApiServer.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%s", s.configs.ApiServer.Port),
		Handler: corsHandler.Handler(s.router.Handler()),
	}

	s.logger.Infof("Starting the API server on port %s", s.configs.ApiServer.Port)
	if err := s.server.ListenAndServe(); err != nil {
		panic(err)
	}

	return nil
}

func (s *srv) loadRouter() {
	s.router = router.New(s.ctx)
	s.router.AddCloser(middleware.Logger())

	// Auth endpoints: no session required, cookie bookkeeping after the
	// handler. The callback resolves an existing session when present so a
	// logged-in user can link further accounts.
	authRouter := s.router.Branch()
	authRouter.After(middleware.HandleSetCookie())
	{
		router.GET(authRouter, "/auth/start", s.authDomain.Start)
		router.POST(authRouter, "/auth/logout", s.authDomain.Logout)
	}

	callbackRouter := s.router.Branch()
	callbackRouter.Before(middleware.MaybeAuthenticate(s.sessionRepo))
	callbackRouter.After(middleware.HandleSetCookie())
	{
		router.GET(callbackRouter, "/auth/callback", s.authDomain.Callback)
	}

	authedRouter := s.router.Branch()
	authedRouter.Before(middleware.Authenticate(s.sessionRepo))
	{
		router.POST(authedRouter, "/auth/disconnect", s.accountDomain.Disconnect)
		router.GET(authedRouter, "/accounts", s.accountDomain.GetAccounts)
		router.POST(authedRouter, "/poll", s.pollDomain.Poll)
		router.GET(authedRouter, "/replies", s.replyDomain.GetReplies)
		router.POST(authedRouter, "/replies/send", s.replyDomain.SendReply)
		router.POST(authedRouter, "/replies/clear", s.replyDomain.ClearReplies)
	}
}
