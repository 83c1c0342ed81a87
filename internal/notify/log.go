package notify

import (
	"context"

	"github.com/sandeepkv93/remindd/internal/logx"
	"github.com/sandeepkv93/remindd/internal/model"
)

// LogPresenter writes one structured line per fired reminder.
type LogPresenter struct {
	channels
	log logx.Logger
}

func NewLogPresenter(log logx.Logger) *LogPresenter {
	return &LogPresenter{log: log.With(logx.String("component", "notify"))}
}

func (p *LogPresenter) RegisterChannel(ch Channel) error {
	if err := p.register(ch); err != nil {
		return err
	}
	p.log.Debug("channel registered", logx.String("channel", ch.ID), logx.String("importance", ch.Importance.String()))
	return nil
}

func (p *LogPresenter) Present(_ context.Context, n model.Notification) error {
	p.log.Info("reminder",
		logx.Int("request_code", n.RequestCode),
		logx.String("note_id", n.NoteID),
		logx.String("title", n.Title),
		logx.String("repeat", n.RepeatMode.String()),
		logx.String("channel", p.active().ID),
	)
	return nil
}
