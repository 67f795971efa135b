// Package composer builds the message text posted for a delivered card.
// Compose is pure and deterministic: identical inputs always yield a
// byte-identical message, so tests can assert on golden strings.
package composer

import (
	"encoding/json"
	"strings"

	"github.com/cardloop/card-courier/internal/domain"
)

// mentionTag is the platform's embedded-mention syntax: a JSON object
// prefixed with '!'. It is always serialized through encoding/json so a
// display name containing quotes or braces cannot corrupt the message.
type mentionTag struct {
	Type string `json:"type"`
	Raw  string `json:"raw"`
	ID   string `json:"id"`
}

// Compose renders the delivery message:
//
//	!{"type":"user","raw":"@alice","id":"..."} sent you a card!
//	<custom text, when present>
//
//	<fileURL>
func Compose(sender domain.Sender, customText, fileURL string) string {
	tag, err := json.Marshal(mentionTag{
		Type: "user",
		Raw:  "@" + sender.Name,
		ID:   sender.ID,
	})
	if err != nil {
		// Marshalling a struct of plain strings cannot fail; keep the
		// signature pure rather than plumbing an impossible error.
		panic(err)
	}

	var b strings.Builder
	b.WriteString("!")
	b.Write(tag)
	b.WriteString(" sent you a card!\n")
	if customText != "" {
		b.WriteString(customText)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(fileURL)
	b.WriteString("\n")
	return b.String()
}
