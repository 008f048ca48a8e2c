package forums

import (
	"fmt"

	"github.com/julianstephens/rehab/internal/cli"
	"github.com/julianstephens/rehab/internal/constants"
	"github.com/julianstephens/rehab/internal/forum"
	"github.com/julianstephens/rehab/internal/models"
)

const timeLayout = constants.DateFormat + " " + constants.TimeFormat

type ForumListCmd struct{}

func (c *ForumListCmd) Run(ctx *cli.Context) error {
	posts, err := ctx.Forum().List(ctx.Background())
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		fmt.Println("No posts yet. Start the conversation with 'rehab forum post'.")
		return nil
	}
	for _, p := range posts {
		fmt.Printf("%s  %s  %-40s  %s  (%d replies)\n",
			p.ID, p.CreatedAt.Local().Format(timeLayout), p.Title, p.AuthorName, p.ReplyCount)
	}
	return nil
}

type ForumPostCmd struct {
	Title   string `arg:"" help:"Post title."`
	Content string `arg:"" help:"Post body."`
}

func (c *ForumPostCmd) Run(ctx *cli.Context) error {
	post, err := ctx.Forum().CreatePost(ctx.Background(), ctx.Identity, forum.PostInput{Title: c.Title, Content: c.Content})
	if err != nil {
		return err
	}
	fmt.Printf("✓ Posted %q as %s (%s)\n", post.Title, post.AuthorName, post.ID)
	return nil
}

type ForumShowCmd struct {
	Post string `arg:"" help:"Post id."`
}

func (c *ForumShowCmd) Run(ctx *cli.Context) error {
	svc := ctx.Forum()
	post, err := svc.Get(ctx.Background(), c.Post)
	if err != nil {
		return err
	}
	replies, err := svc.Replies(ctx.Background(), c.Post)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n%s · %s\n\n%s\n", post.Title, post.AuthorName, post.CreatedAt.Local().Format(timeLayout), post.Content)
	fmt.Printf("\n%d replies\n", post.ReplyCount)
	for _, r := range replies {
		printReply(r)
	}
	return nil
}

func printReply(r models.ForumReply) {
	fmt.Printf("  [%s] %s: %s\n", r.CreatedAt.Local().Format(timeLayout), r.AuthorName, r.Content)
}

type ForumReplyCmd struct {
	Post    string `arg:"" help:"Post id."`
	Content string `arg:"" help:"Reply body."`
}

func (c *ForumReplyCmd) Run(ctx *cli.Context) error {
	r, err := ctx.Forum().Reply(ctx.Background(), ctx.Identity, c.Post, forum.ReplyInput{Content: c.Content})
	if err != nil {
		return err
	}
	fmt.Printf("✓ Replied as %s\n", r.AuthorName)
	return nil
}
