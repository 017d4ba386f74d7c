package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

type TicketStatus string

const (
	TicketOpen     TicketStatus = "open"
	TicketResolved TicketStatus = "resolved"
)

type Ticket struct {
	ID          ObjectID     `bson:"_id,omitempty" json:"id"`
	Subject     string       `bson:"subject" json:"subject" validate:"required,max=200"`
	Description string       `bson:"description" json:"description"`
	UserEmail   string       `bson:"user_email" json:"userEmail" validate:"required,email"`
	Status      TicketStatus `bson:"status" json:"status" validate:"oneof=open resolved"`
	Attachments []string     `bson:"attachments" json:"attachments" validate:"urls"`
	Version     int64        `bson:"version" json:"version"`
	CreatedAt   time.Time    `bson:"created_at" json:"createdAt"`
}

func (Ticket) CollectionName() string { return "tickets" }

func (t Ticket) GetID() string     { return string(t.ID) }
func (t Ticket) GetVersion() int64 { return t.Version }

func (t Ticket) Stamp(id string, version int64) Ticket {
	t.ID = ObjectID(id)
	t.Version = version
	return t
}

type TicketPatch struct {
	Status *TicketStatus
}

func (p TicketPatch) Apply(t Ticket) Ticket {
	if p.Status != nil {
		t.Status = *p.Status
	}
	return t
}

func (p TicketPatch) Fields() bson.M {
	set := bson.M{}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	return set
}
