// Package intake turns chat requests into stored transfer tasks and handles
// the account and directory commands around them.
package intake

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/OpenListTeam/tgdrive/internal/authserver"
	"github.com/OpenListTeam/tgdrive/internal/chat"
	"github.com/OpenListTeam/tgdrive/internal/conf"
	"github.com/OpenListTeam/tgdrive/internal/db"
	"github.com/OpenListTeam/tgdrive/internal/errs"
	"github.com/OpenListTeam/tgdrive/internal/model"
	"github.com/OpenListTeam/tgdrive/internal/onedrive"
	"github.com/OpenListTeam/tgdrive/internal/tasker"
	"github.com/OpenListTeam/tgdrive/pkg/utils"
	"github.com/pkg/errors"
)

// Drive is the part of the OneDrive manager intake relies on.
type Drive interface {
	IsAuthorized(ctx context.Context) bool
	RootPath(useTemp bool) string
	OpenUploadSession(ctx context.Context, rootPath, filename string) (*onedrive.UploadSession, *onedrive.UploadSessionMeta, error)

	AuthURL(state string) string
	Login(ctx context.Context, code string) error
	Logout(ctx context.Context, username *string) error
	SwitchUser(ctx context.Context, username string) error
	Usernames() ([]string, error)
	CurrentUsername() string

	SetRootPath(ctx context.Context, rootPath string) error
	ResetRootPath(ctx context.Context) error
	SetTempRootPath(rootPath string)
	CancelTempRootPath()
	TempRootPath() string
}

type Service struct {
	drive     Drive
	registry  *tasker.Registry
	messenger chat.Messenger
	urls      *tasker.URLSource
	broker    *authserver.Broker
}

func NewService(drive Drive, registry *tasker.Registry, messenger chat.Messenger, broker *authserver.Broker) *Service {
	return &Service{
		drive:     drive,
		registry:  registry,
		messenger: messenger,
		urls:      tasker.NewURLSource(),
		broker:    broker,
	}
}

func (s *Service) requireAuthorized(ctx context.Context) error {
	if !s.drive.IsAuthorized(ctx) {
		return errs.NewAuth(errs.NotAuthorized, "onedrive is not authorized, use /auth first")
	}
	return nil
}

// AcceptFile stores a task for the media of msg. Forwarded and grouped
// messages get a placeholder message carrying the file name so later
// notifications have something of their own to reply to.
func (s *Service) AcceptFile(ctx context.Context, msg chat.Message) (*model.Task, error) {
	if err := s.requireAuthorized(ctx); err != nil {
		return nil, err
	}
	if msg.Media == nil || !msg.Media.Valid() {
		return nil, errs.NewProtocol(nil, "message does not contain a photo, document or sticker")
	}
	filename := mediaFilename(&msg)

	messageID := msg.MessageID
	var messageIDForward *int
	if msg.Forwarded || msg.Grouped {
		original := msg.MessageID
		messageIDForward = &original
		out := chat.Outgoing{Text: conf.BypassPrefix + filename}
		if msg.Media.HasThumb() {
			out.Thumb = utils.FitThumb(msg.Media.Thumb)
		}
		ref, err := s.messenger.Send(ctx, msg.ChatHex, out)
		if err != nil {
			return nil, errors.WithMessage(err, "failed send placeholder of forwarded message")
		}
		messageID = ref.MessageID
	}

	task := &model.Task{
		CmdType:          model.CmdFile,
		Filename:         filename,
		TotalLength:      msg.Media.Size,
		ChatBotHex:       msg.BotChatHex,
		ChatUserHex:      msg.ChatHex,
		MessageID:        messageID,
		MessageIDForward: messageIDForward,
	}
	if err := s.insert(ctx, task); err != nil {
		return nil, err
	}
	utils.Log.Infof("inserted file task: %s size: %d", task.Filename, task.TotalLength)
	return task, nil
}

// AcceptLink stores a task for media that lives in another chat, referenced
// from msg.
func (s *Service) AcceptLink(ctx context.Context, msg chat.Message, origin chat.Ref, media *chat.Media) (*model.Task, error) {
	if err := s.requireAuthorized(ctx); err != nil {
		return nil, err
	}
	if media == nil || !media.Valid() {
		return nil, errs.NewProtocol(nil, "linked message does not contain a photo, document or sticker")
	}
	originHex, originID := origin.ChatHex, origin.MessageID
	task := &model.Task{
		CmdType:         model.CmdLink,
		Filename:        mediaFilename(&chat.Message{Ref: origin, Media: media}),
		TotalLength:     media.Size,
		ChatBotHex:      msg.BotChatHex,
		ChatUserHex:     msg.ChatHex,
		ChatOriginHex:   &originHex,
		MessageID:       msg.MessageID,
		MessageIDOrigin: &originID,
	}
	if err := s.insert(ctx, task); err != nil {
		return nil, err
	}
	utils.Log.Infof("inserted link task: %s size: %d", task.Filename, task.TotalLength)
	return task, nil
}

// AcceptURL stores a task downloading rawURL. The size is learned from a
// HEAD request before any upload slot or row exists.
func (s *Service) AcceptURL(ctx context.Context, msg chat.Message, rawURL string) (*model.Task, error) {
	if err := s.requireAuthorized(ctx); err != nil {
		return nil, err
	}
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.Wrapf(errs.InvalidState, "not an http url: %s", rawURL)
	}
	remote, err := s.urls.Head(ctx, u.String())
	if err != nil {
		return nil, err
	}
	link := remote.URL
	task := &model.Task{
		CmdType:     model.CmdURL,
		Filename:    utils.SanitizeFilename(remote.Filename),
		URL:         &link,
		TotalLength: remote.Size,
		ChatBotHex:  msg.BotChatHex,
		ChatUserHex: msg.ChatHex,
		MessageID:   msg.MessageID,
	}
	if err := s.insert(ctx, task); err != nil {
		return nil, err
	}
	utils.Log.Infof("inserted url task: %s size: %d", task.Filename, task.TotalLength)
	return task, nil
}

// insert opens the upload slot and stores the task together with its
// cancellation handle.
func (s *Service) insert(ctx context.Context, task *model.Task) error {
	task.RootPath = s.drive.RootPath(true)
	session, meta, err := s.drive.OpenUploadSession(ctx, task.RootPath, task.Filename)
	if err != nil {
		return err
	}
	start, err := meta.StartOffset()
	if err != nil {
		return err
	}
	task.UploadURL = session.UploadURL()
	task.CurrentLength = start
	return s.registry.Do(func(tx *tasker.RegistryTx) error {
		if err := db.CreateTask(task); err != nil {
			return err
		}
		tx.Register(task.ID, task.ChatUserHex)
		return nil
	})
}

// Clear cancels and deletes every task of a chat.
func (s *Service) Clear(ctx context.Context, chatHex string) (int64, error) {
	var deleted int64
	err := s.registry.Do(func(tx *tasker.RegistryTx) error {
		canceled := tx.CancelScope(chatHex)
		n, err := db.DeleteTasksByChat(chatHex)
		if err != nil {
			return err
		}
		deleted = n
		utils.Log.Infof("cleared %d tasks of chat %s, %d were running", n, chatHex, len(canceled))
		return nil
	})
	return deleted, err
}

// Cancel stops one unfinished task and deletes it.
func (s *Service) Cancel(ctx context.Context, id uint) error {
	return s.registry.Do(func(tx *tasker.RegistryTx) error {
		t, err := db.GetTaskByID(id)
		if err != nil {
			return err
		}
		if t.Status.IsTerminal() {
			return errors.Wrapf(errs.InvalidState, "task %d is already %s", id, t.Status)
		}
		tx.Cancel(id)
		return db.DeleteTaskByID(id)
	})
}

func mediaFilename(msg *chat.Message) string {
	if name := utils.SanitizeFilename(msg.Media.Filename); msg.Media.Filename != "" {
		return name
	}
	switch msg.Media.Kind {
	case chat.KindPhoto:
		return fmt.Sprintf("%d.jpg", msg.MessageID)
	case chat.KindSticker:
		return fmt.Sprintf("%d.webp", msg.MessageID)
	default:
		return fmt.Sprintf("%d", msg.MessageID)
	}
}
