package intake

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/OpenListTeam/tgdrive/internal/chat"
	"github.com/OpenListTeam/tgdrive/internal/errs"
	"github.com/OpenListTeam/tgdrive/pkg/utils"
	"github.com/google/uuid"
	"github.com/maruel/natural"
	"github.com/pkg/errors"
)

const authTimeout = 3 * time.Minute

// Authorize sends the authorization url to chatHex, waits for the callback
// and logs the resulting user in. Login errors are returned unchanged.
func (s *Service) Authorize(ctx context.Context, chatHex string) (string, error) {
	state := uuid.NewString()
	codeCh := s.broker.Expect(state)

	text := fmt.Sprintf("Here are the authorization url of OneDrive:\n\n%s", s.drive.AuthURL(state))
	if _, err := s.messenger.Send(ctx, chatHex, chat.Outgoing{Text: text}); err != nil {
		s.broker.Forget(state)
		return "", errors.WithMessage(err, "failed send onedrive authorization url")
	}

	waitCtx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()
	code, err := s.broker.Wait(waitCtx, state, codeCh)
	if err != nil {
		return "", errs.NewAuth(err, "onedrive authorization timed out")
	}
	if err := s.drive.Login(ctx, code); err != nil {
		return "", err
	}
	username := s.drive.CurrentUsername()
	s.reply(ctx, chatHex, fmt.Sprintf("OneDrive authorization successful!\nCurrent user: %s", username))
	return username, nil
}

// Logout signs out username, or the current user when empty. Signing out the
// last user is reported to the chat and returned as errs.NoUserLeft.
func (s *Service) Logout(ctx context.Context, chatHex, username string) error {
	var target *string
	if username = strings.TrimSpace(username); username != "" {
		target = &username
	}
	err := s.drive.Logout(ctx, target)
	switch {
	case err == nil:
		s.reply(ctx, chatHex, fmt.Sprintf("OneDrive logout successfully.\nCurrent user: %s", s.drive.CurrentUsername()))
	case errors.Is(err, errs.NoUserLeft):
		s.reply(ctx, chatHex, "OneDrive logout successfully.\nNo user left, use /auth to login again.")
	}
	return err
}

// SwitchUser makes another known user current.
func (s *Service) SwitchUser(ctx context.Context, chatHex, username string) error {
	if err := s.drive.SwitchUser(ctx, username); err != nil {
		return err
	}
	s.reply(ctx, chatHex, fmt.Sprintf("Switched to OneDrive user %s", username))
	return nil
}

// Users lists known users with the current one marked.
func (s *Service) Users() ([]string, error) {
	names, err := s.drive.Usernames()
	if err != nil {
		return nil, err
	}
	sort.Slice(names, func(i, j int) bool {
		return natural.Less(names[i], names[j])
	})
	current := s.drive.CurrentUsername()
	for i, name := range names {
		if name == current {
			names[i] = name + " (current)"
		}
	}
	return names, nil
}

func (s *Service) reply(ctx context.Context, chatHex, text string) {
	if _, err := s.messenger.Send(ctx, chatHex, chat.Outgoing{Text: text}); err != nil {
		utils.Log.Warnf("failed send message to %s: %+v", chatHex, err)
	}
}
