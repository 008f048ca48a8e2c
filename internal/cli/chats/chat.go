package chats

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/rehab/internal/chat"
	"github.com/julianstephens/rehab/internal/cli"
	"github.com/julianstephens/rehab/internal/constants"
	"github.com/julianstephens/rehab/internal/models"
)

const timeLayout = constants.DateFormat + " " + constants.TimeFormat

// history serves the commands that never generate, so they work without an API key
func history(ctx *cli.Context) *chat.Service {
	return chat.NewService(ctx.Store, nil)
}

func printMessage(m models.ChatMessage, counselor string) {
	who := "You"
	if m.Role == constants.RoleAssistant {
		who = counselor
		if who == "" {
			who = "Counselor"
		}
	}
	fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format(timeLayout), who, m.Content)
}

type ChatListCmd struct{}

func (c *ChatListCmd) Run(ctx *cli.Context) error {
	sessions, err := history(ctx).Sessions(ctx.Background(), ctx.Identity)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No chats yet. Start one with 'rehab chat new'.")
		return nil
	}
	for _, s := range sessions {
		counselor := s.Counselor
		if counselor == "" {
			counselor = "-"
		}
		fmt.Printf("%s  %s  %s\n", s.ID, s.CreatedAt.Local().Format(timeLayout), counselor)
	}
	return nil
}

type ChatNewCmd struct {
	Counselor string `help:"Counselor persona (Alex, Dr. Evelyn Reed, Sam, Jordan)."`
	Message   string `arg:"" optional:"" help:"Optional first message."`
}

func (c *ChatNewCmd) Run(ctx *cli.Context) error {
	svc := history(ctx)
	if c.Message != "" {
		var err error
		if svc, err = ctx.Chat(); err != nil {
			return err
		}
	}
	session, err := svc.NewSession(ctx.Background(), ctx.Identity, c.Counselor)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Started chat %s\n", session.ID)
	if c.Message == "" {
		return nil
	}
	return send(ctx, svc, session.ID, c.Message)
}

type ChatSendCmd struct {
	Session string `arg:"" help:"Chat session id."`
	Message string `arg:"" help:"What you want to say."`
}

func (c *ChatSendCmd) Run(ctx *cli.Context) error {
	svc, err := ctx.Chat()
	if err != nil {
		return err
	}
	return send(ctx, svc, c.Session, c.Message)
}

func send(ctx *cli.Context, svc *chat.Service, sessionID, message string) error {
	res, err := svc.Send(ctx.Background(), ctx.Identity, sessionID, message)
	if err != nil {
		return err
	}
	if !res.Generated {
		fmt.Println(res.Message)
		return nil
	}

	session, err := svc.Session(ctx.Background(), ctx.Identity, sessionID)
	if err != nil {
		return err
	}
	msgs, err := svc.History(ctx.Background(), ctx.Identity, sessionID)
	if err != nil {
		return err
	}
	if len(msgs) > 0 {
		printMessage(msgs[len(msgs)-1], session.Counselor)
	}
	return nil
}

type ChatShowCmd struct {
	Session string `arg:"" help:"Chat session id."`
}

func (c *ChatShowCmd) Run(ctx *cli.Context) error {
	svc := history(ctx)
	session, err := svc.Session(ctx.Background(), ctx.Identity, c.Session)
	if err != nil {
		return err
	}
	msgs, err := svc.History(ctx.Background(), ctx.Identity, c.Session)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		fmt.Println("No messages yet.")
		return nil
	}
	for _, m := range msgs {
		printMessage(m, session.Counselor)
	}
	return nil
}

type ChatDeleteCmd struct {
	Session string `arg:"" help:"Chat session id."`
	Yes     bool   `short:"y" help:"Delete without asking."`
}

func (c *ChatDeleteCmd) Run(ctx *cli.Context) error {
	svc := history(ctx)
	if _, err := svc.Session(ctx.Background(), ctx.Identity, c.Session); err != nil {
		return err
	}

	if !c.Yes {
		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Delete chat %s and all of its messages?", c.Session)).
			Value(&confirmed).
			Run()
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Delete cancelled.")
			return nil
		}
	}

	if err := svc.Delete(ctx.Background(), ctx.Identity, c.Session); err != nil {
		return err
	}
	fmt.Printf("✓ Deleted chat %s\n", c.Session)
	return nil
}
