package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/sandeepkv93/remindd/internal/logx"
)

// Sweeper runs Service.Sweep on a cron schedule.
type Sweeper struct {
	mu     sync.Mutex
	svc    *Service
	parser cron.Parser
	c      *cron.Cron
	spec   string
	ctx    context.Context
}

func NewSweeper(ctx context.Context, svc *Service) *Sweeper {
	return &Sweeper{
		svc:    svc,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		ctx:    ctx,
	}
}

// Apply (re)starts the sweep with spec. An empty spec stops it.
func (s *Sweeper) Apply(spec string) error {
	spec = strings.TrimSpace(spec)

	s.mu.Lock()
	defer s.mu.Unlock()
	if spec == s.spec && s.c != nil {
		return nil
	}
	if spec != "" {
		if _, err := s.parser.Parse(spec); err != nil {
			return fmt.Errorf("scheduler: sweep spec %q: %w", spec, err)
		}
	}
	s.stopLocked()
	s.spec = spec
	if spec == "" {
		s.svc.log.Info("sweep disabled")
		return nil
	}

	c := cron.New(
		cron.WithParser(s.parser),
		cron.WithLocation(s.svc.loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(spec, s.run); err != nil {
		return fmt.Errorf("scheduler: sweep spec %q: %w", spec, err)
	}
	c.Start()
	s.c = c
	s.svc.log.Info("sweep scheduled", logx.String("spec", spec))
	return nil
}

func (s *Sweeper) run() {
	if err := s.svc.Sweep(s.ctx); err != nil {
		s.svc.log.Warn("sweep failed", logx.Err(err))
	}
}

func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Sweeper) stopLocked() {
	if s.c == nil {
		return
	}
	<-s.c.Stop().Done()
	s.c = nil
}
