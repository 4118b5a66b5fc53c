package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/replydesk/backend/internal/domain/poller"
	"github.com/urfave/cli/v2"
)

func (s *srv) startPoller(cctx *cli.Context) error {
	s.loadConfig(cctx)
	s.loadLogger()
	s.loadDatabase()
	s.loadRedis()
	s.loadEndpoint()
	s.loadRepos()
	s.loadDomains()

	s.scheduler = poller.NewScheduler(
		s.configs.Poll.Interval.Duration,
		poller.PollJob(s.pollDomain),
		poller.NewRedisBackoffStore(s.redisClient),
	)

	s.logger.Infof("Starting the poller with a %s interval", s.configs.Poll.Interval.Duration)
	s.scheduler.Start(s.ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	s.scheduler.Stop()
	s.logger.Infof("Poller stopped")
	return nil
}
