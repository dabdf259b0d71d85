// Package rooms finds the rooms the bot belongs to and picks the one to poll.
package rooms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"relaybot/app/client/webex"
	"relaybot/app/config"
	"relaybot/app/model"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

const maxMemberNames = 3

var (
	ErrNoRooms        = errors.New("no rooms found where the bot is a member")
	ErrNoRoomSelected = errors.New("no room selected")
)

type Directory interface {
	ListRooms(ctx context.Context) ([]model.Room, error)
	ListMemberships(ctx context.Context, roomID string) ([]model.Membership, error)
	GetPerson(ctx context.Context, personID string) (*model.Person, error)
	Me(ctx context.Context) (*model.Person, error)
}

// Candidate is a room the bot can poll, with labels for the picker.
type Candidate struct {
	Room    model.Room
	Members []string
}

func (c Candidate) Label() string {
	label := fmt.Sprintf("%s (%s)", c.Room.Title, c.Room.Type)
	if !c.Room.LastActivity.IsZero() {
		label += ", active " + c.Room.LastActivity.Local().Format("2006-01-02 15:04")
	}
	if len(c.Members) > 0 {
		label += ", with " + strings.Join(c.Members, ", ")
	}

	return label
}

type Service struct {
	directory Directory
	prompter  Prompter
	botEmail  string
	preferred string
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(
		do.MustInvoke[*webex.Client](di),
		HuhPrompter{},
		cfg.Webex.BotEmail,
		cfg.Webex.PreferredRoom,
	), nil
}

func NewService(directory Directory, prompter Prompter, botEmail, preferred string) *Service {
	return &Service{
		directory: directory,
		prompter:  prompter,
		botEmail:  botEmail,
		preferred: preferred,
	}
}

// Identity resolves the bot's own id. The configured email wins over the one the API reports.
func (s *Service) Identity(ctx context.Context) (model.BotIdentity, error) {
	me, err := s.directory.Me(ctx)
	if err != nil {
		return model.BotIdentity{}, fmt.Errorf("directory.Me: %w", err)
	}

	identity := model.BotIdentity{BotID: me.ID, BotEmail: s.botEmail}
	if identity.BotEmail == "" && len(me.Emails) > 0 {
		identity.BotEmail = me.Emails[0]
	}

	return identity, nil
}

// FindBotRooms returns rooms whose membership includes the bot.
func (s *Service) FindBotRooms(ctx context.Context) ([]Candidate, error) {
	rooms, err := s.directory.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("directory.ListRooms: %w", err)
	}

	var result []Candidate

	for _, room := range rooms {
		memberships, err := s.directory.ListMemberships(ctx, room.ID)
		if err != nil {
			slog.Warn("Failed to list room members",
				"room", room.Title,
				"error", err,
			)
			continue
		}

		isMember := pie.Any(memberships, func(m model.Membership) bool {
			return strings.EqualFold(m.PersonEmail, s.botEmail)
		})
		if !isMember {
			continue
		}

		others := pie.Filter(memberships, func(m model.Membership) bool {
			return !strings.EqualFold(m.PersonEmail, s.botEmail)
		})
		if len(others) > maxMemberNames {
			others = others[:maxMemberNames]
		}

		result = append(result, Candidate{
			Room: room,
			Members: pie.Map(others, func(m model.Membership) string {
				return s.memberName(ctx, m)
			}),
		})
	}

	return result, nil
}

// Select returns the room to poll: the preferred one by title, the only one, or the user's pick.
func (s *Service) Select(ctx context.Context) (model.Room, error) {
	candidates, err := s.FindBotRooms(ctx)
	if err != nil {
		return model.Room{}, err
	}
	if len(candidates) == 0 {
		return model.Room{}, ErrNoRooms
	}

	if s.preferred != "" {
		needle := strings.ToLower(s.preferred)
		for _, c := range candidates {
			if strings.Contains(strings.ToLower(c.Room.Title), needle) {
				slog.Info("Using preferred room", "room", c.Room.Title)
				return c.Room, nil
			}
		}

		slog.Warn("Preferred room not found", "preferred", s.preferred)
	}

	if len(candidates) == 1 {
		slog.Info("Using the only available room", "room", candidates[0].Room.Title)
		return candidates[0].Room, nil
	}

	index, err := s.prompter.Choose(ctx, "Select a room", pie.Map(candidates, Candidate.Label))
	if errors.Is(err, ErrNoRoomSelected) {
		return model.Room{}, err
	}
	if err != nil {
		return model.Room{}, fmt.Errorf("%w: %w", ErrNoRoomSelected, err)
	}
	if index < 0 || index >= len(candidates) {
		return model.Room{}, ErrNoRoomSelected
	}

	return candidates[index].Room, nil
}

func (s *Service) memberName(ctx context.Context, m model.Membership) string {
	if m.DisplayName != "" {
		return m.DisplayName
	}

	if m.PersonID != "" {
		person, err := s.directory.GetPerson(ctx, m.PersonID)
		if err == nil && person.DisplayName != "" {
			return person.DisplayName
		}
	}

	local, _, _ := strings.Cut(m.PersonEmail, "@")

	return local
}
