package mail

import (
	"context"
	"log"
)

// VerificationMessage asks the submitter to confirm a new post.
// VerifyURL embeds the post's verification token.
type VerificationMessage struct {
	To        string `json:"to"`
	Title     string `json:"title"`
	VerifyURL string `json:"verifyUrl"`
	PostID    int64  `json:"postId"`
}

// Sender delivers outbound mail
type Sender interface {
	SendPostVerification(ctx context.Context, msg VerificationMessage) error
}

// LogSender writes messages to the log instead of delivering them.
// Used when no mail transport is configured. The verification link grants
// ownership of the post, so it is only written when ShowLinks is set.
type LogSender struct {
	ShowLinks bool
}

func (s LogSender) SendPostVerification(ctx context.Context, msg VerificationMessage) error {
	if s.ShowLinks {
		log.Printf("[MAIL] verification for post %d to %s: %s", msg.PostID, msg.To, msg.VerifyURL)
		return nil
	}
	log.Printf("[MAIL] verification for post %d to %s (link withheld)", msg.PostID, msg.To)
	return nil
}
