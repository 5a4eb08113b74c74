package dispatch

import (
	"fmt"
	"strings"

	"timeline-agent/models"
)

const REPLY_SYSTEM = `You are a helpful assistant that generates engaging replies on social media. Keep responses concise and relevant. Never use quotation marks.`

const SUMMARY_SYSTEM = `You are a helpful assistant that generates insightful posts about crypto and market trends. Keep responses casual and natural. Never use quotation marks.`

func replyPrompt(content string, maxChars int) string {
	return fmt.Sprintf(`Post to reply to:
%s

Generate a casual reply that:
1. Stays relevant to the post
2. Uses all lowercase (like casual texting)
3. Keeps it under %d chars
4. Same language as original post
5. NO hashtags, NO emojis, NO quotation marks
6. Sounds like a friend chatting (not a formal reply)

Example good reply: never thought about it that way
Example bad reply: Thank you for sharing! This is a very interesting perspective.

Make it sound natural and conversational, not like an assistant.
IMPORTANT: Never use quotation marks in the reply.`, content, maxChars)
}

func summaryPrompt(posts []models.Post, maxChars int) string {
	blocks := make([]string, 0, len(posts))
	for _, p := range posts {
		var b strings.Builder
		fmt.Fprintf(&b, "Post: %s\n", p.Content)
		if s := p.SummaryText(); s != "" {
			fmt.Fprintf(&b, "Summary: %s\n", s)
		}
		fmt.Fprintf(&b, "Topics: %s\n", strings.Join(p.Topics, ", "))
		fmt.Fprintf(&b, "Insight Score: %d", p.Score())
		blocks = append(blocks, b.String())
	}

	return fmt.Sprintf(`Based on these recent posts:

%s

Create a casual observation about trends or patterns you notice. The post should:
1. Be casual and conversational (like texting a friend)
2. Use lowercase (like casual texting)
3. Keep it under %d chars
4. NO hashtags, NO emojis, NO quotation marks
5. Focus on insights, not just listing what happened
6. Sound natural, not like a formal summary
7. Use the same language as the posts

Example good post: been noticing how much a single strong coin can influence the whole market
Example bad post: Analysis of recent market trends shows significant correlation between assets

IMPORTANT: Never use quotation marks in the post.`, strings.Join(blocks, "\n\n"), maxChars)
}
