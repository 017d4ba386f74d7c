package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

type ChatbotStatus string

const (
	ChatbotActive         ChatbotStatus = "active"
	ChatbotNeedsAttention ChatbotStatus = "needs_attention"
	ChatbotInactive       ChatbotStatus = "inactive"
)

type Chatbot struct {
	ID           ObjectID      `bson:"_id,omitempty" json:"id"`
	Name         string        `bson:"name" json:"name" validate:"required,max=120"`
	OwnerEmail   string        `bson:"owner_email" json:"ownerEmail" validate:"required,email"`
	Status       ChatbotStatus `bson:"status" json:"status" validate:"oneof=active needs_attention inactive"`
	LastActive   time.Time     `bson:"last_active" json:"lastActive"`
	RequestCount int64         `bson:"request_count" json:"requestCount" validate:"gte=0"`
	Version      int64         `bson:"version" json:"version"`
}

func (Chatbot) CollectionName() string { return "chatbots" }

func (c Chatbot) GetID() string     { return string(c.ID) }
func (c Chatbot) GetVersion() int64 { return c.Version }

func (c Chatbot) Stamp(id string, version int64) Chatbot {
	c.ID = ObjectID(id)
	c.Version = version
	return c
}

type ChatbotPatch struct {
	Name         *string
	Status       *ChatbotStatus
	LastActive   *time.Time
	RequestCount *int64
}

func (p ChatbotPatch) Apply(c Chatbot) Chatbot {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.LastActive != nil {
		c.LastActive = *p.LastActive
	}
	if p.RequestCount != nil {
		c.RequestCount = *p.RequestCount
	}
	return c
}

func (p ChatbotPatch) Fields() bson.M {
	set := bson.M{}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if p.LastActive != nil {
		set["last_active"] = *p.LastActive
	}
	if p.RequestCount != nil {
		set["request_count"] = *p.RequestCount
	}
	return set
}
