package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

type AgentStatus string

const (
	AgentDraft     AgentStatus = "draft"
	AgentPublished AgentStatus = "published"
)

// Agent is a chatbot agent definition. Config is an opaque structured
// document edited as JSON.
type Agent struct {
	ID          ObjectID       `bson:"_id,omitempty" json:"id"`
	Name        string         `bson:"name" json:"name" validate:"required,max=120"`
	Description string         `bson:"description" json:"description" validate:"max=2000"`
	Config      map[string]any `bson:"config" json:"config"`
	Status      AgentStatus    `bson:"status" json:"status" validate:"oneof=draft published"`
	OwnerID     ObjectID       `bson:"owner_id" json:"ownerId" validate:"required"`
	Version     int64          `bson:"version" json:"version"`
	CreatedAt   time.Time      `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `bson:"updated_at" json:"updatedAt"`
	PublishedAt *time.Time     `bson:"published_at,omitempty" json:"publishedAt,omitempty"`
}

func (Agent) CollectionName() string { return "agents" }

func (a Agent) GetID() string     { return string(a.ID) }
func (a Agent) GetVersion() int64 { return a.Version }

func (a Agent) Stamp(id string, version int64) Agent {
	a.ID = ObjectID(id)
	a.Version = version
	return a
}

// AgentPatch replaces Config wholesale; records are treated as immutable values.
type AgentPatch struct {
	Name        *string
	Description *string
	Config      map[string]any
	Status      *AgentStatus
	PublishedAt *time.Time
	UpdatedAt   time.Time
}

func (p AgentPatch) Apply(a Agent) Agent {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.Config != nil {
		a.Config = p.Config
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.PublishedAt != nil {
		at := *p.PublishedAt
		a.PublishedAt = &at
	}
	a.UpdatedAt = p.UpdatedAt
	return a
}

func (p AgentPatch) Fields() bson.M {
	set := bson.M{"updated_at": p.UpdatedAt}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Config != nil {
		set["config"] = p.Config
	}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if p.PublishedAt != nil {
		set["published_at"] = *p.PublishedAt
	}
	return set
}
