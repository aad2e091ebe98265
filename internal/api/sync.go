package api

import (
	"context"
	"errors"
	"log"
	"time"

	"visitroute/internal/model"
	"visitroute/internal/opt"
	"visitroute/internal/pusher"
	"visitroute/internal/schedule"
	"visitroute/internal/sheets"
)

// Remote is a full-snapshot backup target.
type Remote interface {
	Pull(ctx context.Context) ([]model.Client, error)
	Push(ctx context.Context, clients []model.Client) error
}

var notices = map[opt.Locale]map[string]string{
	opt.LocaleEN: {
		"pulled":      "Loaded schedule from Google Sheets",
		"push_failed": "Google Sheets sync failed, please try again later",
		"auth_failed": "Google authorization not completed, local data kept",
		"auth_prompt": "Sign in to Google to sync your schedule",
	},
	opt.LocaleZH: {
		"pulled":      "已从 Google Sheets 加载行程",
		"push_failed": "同步 Google Sheets 失败，请稍后重试",
		"auth_failed": "未完成 Google 授权，已保留本地数据",
		"auth_prompt": "请登录 Google 账户以同步行程",
	},
}

func (s *Server) message(key string) string {
	if m, ok := notices[s.Locale]; ok {
		return m[key]
	}
	return notices[opt.LocaleEN][key]
}

// StartSync pulls the remote snapshot once, replacing local data when the
// remote is non-empty, then pushes every later local change after delay.
// Local edits made while the pull is in flight win: the pulled snapshot is
// dropped and the local list is pushed instead. Pull failures are logged
// and local data is kept.
func (s *Server) StartSync(ctx context.Context, remote Remote, delay time.Duration) *pusher.Pusher {
	p := pusher.New(s.Schedule.All, remote.Push)
	p.Delay = delay
	p.OnError = func(err error) {
		var ae *sheets.RemoteSyncAuthError
		if errors.As(err, &ae) {
			s.Notice("error", s.message("auth_failed"))
			return
		}
		s.Notice("error", s.message("push_failed"))
	}

	rev := s.Schedule.Revision()
	s.Schedule.OnChange(func(ch schedule.Change) {
		if ch.Reason != schedule.ReasonRemotePull {
			p.Schedule()
		}
	})

	clients, err := remote.Pull(ctx)
	switch {
	case err != nil:
		log.Printf("sync: pull failed, keeping local data: %v", err)
	case len(clients) == 0:
	default:
		replaced, err := s.Schedule.ReplaceAt(ctx, clients, rev)
		switch {
		case err != nil:
			log.Printf("sync: replace after pull: %v", err)
		case !replaced:
			log.Printf("sync: local edits during pull, keeping local data")
			p.Schedule()
		default:
			s.Notice("info", s.message("pulled"))
		}
	}
	return p
}

// AuthPrompt tells the UI that spreadsheet access needs consent at authURL.
func (s *Server) AuthPrompt(authURL string, cause error) {
	s.Broker.Publish(TopicEvents, Event{Type: EventNotice, Data: map[string]string{
		"level":   "warn",
		"message": s.message("auth_prompt"),
		"authUrl": authURL,
	}})
}
