package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

type APIKey struct {
	ID        ObjectID  `bson:"_id,omitempty" json:"id"`
	Name      string    `bson:"name" json:"name" validate:"required,max=120"`
	OwnerID   ObjectID  `bson:"owner_id" json:"ownerId" validate:"required"`
	Key       string    `bson:"key" json:"key" validate:"required"`
	Version   int64     `bson:"version" json:"version"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

func (APIKey) CollectionName() string { return "apiKeys" }

func (k APIKey) GetID() string     { return string(k.ID) }
func (k APIKey) GetVersion() int64 { return k.Version }

func (k APIKey) Stamp(id string, version int64) APIKey {
	k.ID = ObjectID(id)
	k.Version = version
	return k
}

type APIKeyPatch struct {
	Name *string
	Key  *string
}

func (p APIKeyPatch) Apply(k APIKey) APIKey {
	if p.Name != nil {
		k.Name = *p.Name
	}
	if p.Key != nil {
		k.Key = *p.Key
	}
	return k
}

func (p APIKeyPatch) Fields() bson.M {
	set := bson.M{}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Key != nil {
		set["key"] = *p.Key
	}
	return set
}
