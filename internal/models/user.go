package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserName   string             `bson:"userName" json:"userName"`
	UserEmail  string             `bson:"userEmail" json:"userEmail"`
	Password   string             `bson:"userPassword" json:"-"` // bcrypt hash
	Address    string             `bson:"userAddress,omitempty" json:"userAddress,omitempty"`
	Role       string             `bson:"userRole" json:"userRole"`
	Department string             `bson:"userDepartment,omitempty" json:"userDepartment,omitempty"`
	LastLogin  *time.Time         `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsAuthority reports whether the user may triage complaints.
func (u *User) IsAuthority() bool {
	return u.Role == RoleAuthority
}

// Actor is the verified identity performing an operation, built from the access token.
type Actor struct {
	ID         primitive.ObjectID
	Name       string
	Role       string
	Department string
}

func (a Actor) IsAuthority() bool {
	return a.Role == RoleAuthority
}

// ActorFromUser derives an Actor from a stored user.
func ActorFromUser(u *User) Actor {
	return Actor{ID: u.ID, Name: u.UserName, Role: u.Role, Department: u.Department}
}
