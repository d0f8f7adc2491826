// internal/model/message.go
package model

import "time"

const (
	PlatformTelegram = "telegram"
	PlatformWhatsApp = "whatsapp"

	SenderClient = "client"
	SenderAgent  = "agent"
	SenderBot    = "bot"
	SenderStaff  = "staff"

	MessageSending   = "sending"
	MessageSent      = "sent"
	MessageFailed    = "failed"
	MessageDelivered = "delivered"
	MessageRead      = "read"

	ClientStatusNew = "New"
)

type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

type Message struct {
	ID         string      `json:"id"`
	Text       string      `json:"text"`
	Sender     string      `json:"sender"`
	Timestamp  time.Time   `json:"timestamp"`
	Platform   string      `json:"platform"`
	Status     string      `json:"status,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// Client is a guest conversation counterpart. PhoneNumber is the business key;
// externally originated contacts are also addressable by (Platform, PlatformID).
type Client struct {
	PhoneNumber      string    `json:"phoneNumber"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Address          string    `json:"address"`
	Country          string    `json:"country"`
	Avatar           string    `json:"avatar"`
	Platform         string    `json:"platform"`
	PlatformID       string    `json:"platformId,omitempty"`
	Status           string    `json:"status"`
	UnreadCount      int       `json:"unreadCount"`
	Online           bool      `json:"online"`
	LastActive       time.Time `json:"lastActive"`
	CreatedAt        time.Time `json:"createdAt"`
	PreviousBookings int       `json:"previousBookings"`
	Messages         []Message `json:"messages"`
}

// HasMessage reports whether a message with id is already part of the conversation.
func (c *Client) HasMessage(id string) bool {
	for _, m := range c.Messages {
		if m.ID == id {
			return true
		}
	}
	return false
}

// SetMessageStatus updates the status of message id and reports whether it was found.
func (c *Client) SetMessageStatus(id, status string) bool {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			c.Messages[i].Status = status
			return true
		}
	}
	return false
}
