package rooms_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"relaybot/app/model"
	"relaybot/app/service/rooms"
)

const botEmail = "jarvis@webex.bot"

type fakeDirectory struct {
	rooms       []model.Room
	memberships map[string][]model.Membership
	people      map[string]model.Person
	listErr     error
}

func (f *fakeDirectory) ListRooms(context.Context) ([]model.Room, error) {
	return f.rooms, f.listErr
}

func (f *fakeDirectory) ListMemberships(_ context.Context, roomID string) ([]model.Membership, error) {
	members, ok := f.memberships[roomID]
	if !ok {
		return nil, errors.New("forbidden")
	}

	return members, nil
}

func (f *fakeDirectory) GetPerson(_ context.Context, personID string) (*model.Person, error) {
	person, ok := f.people[personID]
	if !ok {
		return nil, errors.New("not found")
	}

	return &person, nil
}

func (f *fakeDirectory) Me(context.Context) (*model.Person, error) {
	return &model.Person{ID: "bot-id", Emails: []string{"other@webex.bot"}}, nil
}

type fakePrompter struct {
	index  int
	err    error
	labels []string
}

func (f *fakePrompter) Choose(_ context.Context, _ string, labels []string) (int, error) {
	f.labels = labels
	return f.index, f.err
}

func member(roomID, email string) model.Membership {
	return model.Membership{RoomID: roomID, PersonEmail: email}
}

var _ = Describe("Service", func() {
	var (
		ctx      context.Context
		dir      *fakeDirectory
		prompter *fakePrompter
	)

	BeforeEach(func() {
		ctx = context.Background()
		prompter = &fakePrompter{}
		dir = &fakeDirectory{
			rooms: []model.Room{
				{ID: "r1", Title: "Team Standup", Type: "group"},
				{ID: "r2", Title: "My Personal Bot Room", Type: "direct"},
				{ID: "r3", Title: "Not Ours", Type: "group"},
				{ID: "r4", Title: "Locked", Type: "group"},
			},
			memberships: map[string][]model.Membership{
				"r1": {
					member("r1", botEmail),
					{RoomID: "r1", PersonEmail: "alice@x.io", DisplayName: "Alice"},
					{RoomID: "r1", PersonID: "p-bob", PersonEmail: "bob@x.io"},
					{RoomID: "r1", PersonID: "p-ghost", PersonEmail: "carol@x.io"},
					member("r1", "dave@x.io"),
				},
				"r2": {member("r2", "JARVIS@webex.bot"), member("r2", "erin@x.io")},
				"r3": {member("r3", "frank@x.io")},
			},
			people: map[string]model.Person{
				"p-bob": {ID: "p-bob", DisplayName: "Bob"},
			},
		}
	})

	It("finds rooms the bot is a member of", func() {
		svc := rooms.NewService(dir, prompter, botEmail, "")

		candidates, err := svc.FindBotRooms(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(candidates).To(HaveLen(2))
		Expect(candidates[0].Room.ID).To(Equal("r1"))
		Expect(candidates[0].Members).To(Equal([]string{"Alice", "Bob", "carol"}))
		Expect(candidates[1].Room.ID).To(Equal("r2"))
		Expect(candidates[1].Members).To(Equal([]string{"erin"}))
	})

	It("prefers a room by case-insensitive title substring", func() {
		svc := rooms.NewService(dir, prompter, botEmail, "personal bot")

		room, err := svc.Select(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(room.ID).To(Equal("r2"))
		Expect(prompter.labels).To(BeNil())
	})

	It("picks the only room without prompting", func() {
		delete(dir.memberships, "r1")
		svc := rooms.NewService(dir, prompter, botEmail, "")

		room, err := svc.Select(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(room.ID).To(Equal("r2"))
		Expect(prompter.labels).To(BeNil())
	})

	It("asks the operator when several rooms match", func() {
		prompter.index = 1
		svc := rooms.NewService(dir, prompter, botEmail, "missing")

		room, err := svc.Select(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(room.ID).To(Equal("r2"))
		Expect(prompter.labels).To(Equal([]string{
			"Team Standup (group), with Alice, Bob, carol",
			"My Personal Bot Room (direct), with erin",
		}))
	})

	It("fails when the operator quits", func() {
		prompter.index = -1
		svc := rooms.NewService(dir, prompter, botEmail, "")

		_, err := svc.Select(ctx)

		Expect(err).To(MatchError(rooms.ErrNoRoomSelected))
	})

	It("fails when the prompt errors", func() {
		prompter.err = errors.New("no tty")
		svc := rooms.NewService(dir, prompter, botEmail, "")

		_, err := svc.Select(ctx)

		Expect(err).To(MatchError(rooms.ErrNoRoomSelected))
	})

	It("fails when the bot is in no room", func() {
		svc := rooms.NewService(dir, prompter, "nobody@webex.bot", "")

		_, err := svc.Select(ctx)

		Expect(err).To(MatchError(rooms.ErrNoRooms))
	})

	It("resolves the bot identity", func() {
		identity, err := rooms.NewService(dir, prompter, botEmail, "").Identity(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(identity).To(Equal(model.BotIdentity{BotID: "bot-id", BotEmail: botEmail}))

		identity, err = rooms.NewService(dir, prompter, "", "").Identity(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(identity.BotEmail).To(Equal("other@webex.bot"))
	})
})
