package error_notificator

import (
	"context"

	"go.uber.org/zap"
)

// Service forwards pipeline failures to the admin. With a nil infra it only logs.
type Service struct {
	infra Notificator
	log   *zap.SugaredLogger
}

func NewService(infra Notificator, log *zap.SugaredLogger) *Service {
	return &Service{infra: infra, log: log}
}

func (s *Service) Notify(ctx context.Context, source string, err error, details string) error {
	if s.infra == nil {
		return nil
	}
	if nerr := s.infra.Notify(ctx, source, err, details); nerr != nil {
		s.log.Warnw("[error_notificator] send fail", "source", source, "error", nerr)
		return nerr
	}
	return nil
}
