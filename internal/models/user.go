package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserSuspended UserStatus = "suspended"
)

type User struct {
	ID           ObjectID   `bson:"_id,omitempty" json:"id"`
	Email        string     `bson:"email" json:"email" validate:"required,email"`
	PasswordHash string     `bson:"password_hash" json:"-"`
	Name         string     `bson:"name" json:"name"`
	Role         Role       `bson:"role" json:"role" validate:"oneof=user admin super_admin"`
	Status       UserStatus `bson:"status" json:"status" validate:"oneof=active suspended"`
	Tier         Tier       `bson:"tier" json:"tier" validate:"oneof=free pro"`
	Version      int64      `bson:"version" json:"version"`
	CreatedAt    time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `bson:"updated_at" json:"updatedAt"`
}

func (User) CollectionName() string { return "users" }

func (u User) GetID() string     { return string(u.ID) }
func (u User) GetVersion() int64 { return u.Version }

func (u User) Stamp(id string, version int64) User {
	u.ID = ObjectID(id)
	u.Version = version
	return u
}

// Actor returns the principal view of u.
func (u User) Actor() Actor {
	return Actor{UserID: u.ID, Email: u.Email, Role: u.Role, Tier: u.Tier}
}

type UserPatch struct {
	Name      *string
	Role      *Role
	Status    *UserStatus
	Tier      *Tier
	UpdatedAt time.Time
}

func (p UserPatch) Apply(u User) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Status != nil {
		u.Status = *p.Status
	}
	if p.Tier != nil {
		u.Tier = *p.Tier
	}
	u.UpdatedAt = p.UpdatedAt
	return u
}

func (p UserPatch) Fields() bson.M {
	set := bson.M{"updated_at": p.UpdatedAt}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Role != nil {
		set["role"] = *p.Role
	}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if p.Tier != nil {
		set["tier"] = *p.Tier
	}
	return set
}
