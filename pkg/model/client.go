package model

import (
	"strings"
	"time"
)

type Client struct {
	ID              string    `json:"id" bson:"_id"`
	DocumentType    string    `json:"document_type" bson:"document_type"`
	DocumentNumber  string    `json:"document_number" bson:"document_number"`
	FirstName       string    `json:"first_name" bson:"first_name"`
	LastNamePaterno string    `json:"last_name_paterno" bson:"last_name_paterno"`
	LastNameMaterno string    `json:"last_name_materno,omitempty" bson:"last_name_materno,omitempty"`
	Phone           string    `json:"phone" bson:"phone"`
	Email           string    `json:"email,omitempty" bson:"email,omitempty"`
	Gender          string    `json:"gender,omitempty" bson:"gender,omitempty"`
	BirthDate       string    `json:"birth_date,omitempty" bson:"birth_date,omitempty"`
	PhotoRef        string    `json:"photo_ref,omitempty" bson:"photo_ref,omitempty"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}

func (c *Client) FullName() string {
	return strings.TrimSpace(strings.Join([]string{c.FirstName, c.LastNamePaterno, c.LastNameMaterno}, " "))
}

// ApplyDraft refreshes the contact details of an existing client. Identity
// fields (document) are the lookup key and stay untouched.
func (c *Client) ApplyDraft(d ClientDraft, now time.Time) {
	c.FirstName = d.FirstName
	c.LastNamePaterno = d.LastNamePaterno
	if d.LastNameMaterno != "" {
		c.LastNameMaterno = d.LastNameMaterno
	}
	c.Phone = d.PhoneNumber
	if d.Email != "" {
		c.Email = d.Email
	}
	if d.Gender != "" {
		c.Gender = d.Gender
	}
	if d.BirthDate != "" {
		c.BirthDate = d.BirthDate
	}
	if d.PhotoRef != "" {
		c.PhotoRef = d.PhotoRef
	}
	c.UpdatedAt = now
}
