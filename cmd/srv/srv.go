package main

import (
	"context"
	"net/http"

	"github.com/replydesk/backend/config"
	"github.com/replydesk/backend/internal/domain"
	"github.com/replydesk/backend/internal/domain/poller"
	"github.com/replydesk/backend/internal/repository"
	"github.com/replydesk/backend/pkg/api/xapi"
	"github.com/replydesk/backend/pkg/crypto"
	"github.com/replydesk/backend/pkg/logger"
	"github.com/replydesk/backend/pkg/router"
	"github.com/replydesk/backend/pkg/session"
	"github.com/replydesk/backend/pkg/xcontext"
	"github.com/replydesk/backend/pkg/xredis"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type srv struct {
	app *cli.App

	// ctx is the base context of every request and job. The load methods
	// attach configs, logger, database and session store to it.
	ctx context.Context

	configs *config.Configs
	logger  logger.Logger

	redisClient xredis.Client
	endpoint    xapi.IEndpoint
	cipher      *crypto.Cipher

	accountRepo repository.AccountRepository
	sessionRepo repository.SessionRepository
	replyRepo   repository.ReplyRepository

	authDomain    domain.AuthDomain
	accountDomain domain.AccountDomain
	pollDomain    domain.PollDomain
	replyDomain   domain.ReplyDomain
	tokenManager  domain.TokenManager

	scheduler *poller.Scheduler

	router *router.Router
	server *http.Server
}

func (s *srv) loadConfig(cctx *cli.Context) {
	cfg, err := config.Load(cctx.String("config"))
	if err != nil {
		panic(err)
	}

	s.configs = &cfg
	s.ctx = xcontext.WithConfigs(context.Background(), cfg)
}

func (s *srv) loadLogger() {
	level := logger.INFO
	if !s.configs.IsProduction() {
		level = logger.DEBUG
	}

	s.logger = logger.NewLogger(level)
	s.ctx = xcontext.WithLogger(s.ctx, s.logger)
}

func (s *srv) loadDatabase() {
	db, err := gorm.Open(mysql.Open(s.configs.Database.ConnectionString()), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	s.ctx = xcontext.WithDB(s.ctx, db)
}

func (s *srv) loadRedis() {
	redisClient, err := xredis.NewClient(s.ctx, s.configs.Redis)
	if err != nil {
		panic(err)
	}

	s.redisClient = redisClient
}

func (s *srv) loadEndpoint() {
	s.endpoint = xapi.New(s.configs.XApi, s.configs.Auth)

	cipher, err := crypto.NewCipher(s.configs.Encryption.Secret)
	if err != nil {
		panic(err)
	}
	s.cipher = cipher
}

func (s *srv) loadSessionStore() {
	auth := s.configs.Auth
	store := session.NewCookieStore(
		auth.TransactionCookie,
		auth.TransactionMaxAge,
		s.configs.IsProduction(),
		[]byte(auth.TransactionSecret),
	)

	s.ctx = xcontext.WithSessionStore(s.ctx, store)
}

func (s *srv) loadRepos() {
	s.accountRepo = repository.NewAccountRepository()
	s.sessionRepo = repository.NewSessionRepository()
	s.replyRepo = repository.NewReplyRepository()
}

func (s *srv) loadDomains() {
	s.tokenManager = domain.NewTokenManager(s.accountRepo, s.endpoint, s.cipher)
	s.authDomain = domain.NewAuthDomain(
		s.configs.Auth, s.accountRepo, s.sessionRepo, s.endpoint, s.cipher)
	s.accountDomain = domain.NewAccountDomain(
		s.accountRepo, s.sessionRepo, s.replyRepo, s.endpoint, s.cipher)
	s.pollDomain = domain.NewPollDomain(
		s.accountRepo, s.replyRepo, s.tokenManager, s.endpoint, s.cipher)
	s.replyDomain = domain.NewReplyDomain(
		s.accountRepo, s.replyRepo, s.tokenManager, s.endpoint, s.cipher)
}
