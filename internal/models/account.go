package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role names one of the three account kinds. Each kind lives in its own
// collection.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleAuthor Role = "author"
	RoleUser   Role = "user"
)

// Roles lists every account kind.
var Roles = []Role{RoleAdmin, RoleAuthor, RoleUser}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAuthor, RoleUser:
		return true
	}
	return false
}

// LoginEntry is one element of Account.LoginHistory.
type LoginEntry struct {
	Device string    `bson:"device" json:"device"`
	IP     string    `bson:"ip" json:"ip"`
	At     time.Time `bson:"at" json:"at"`
}

// Account is the record shared by admins, authors and users.
type Account struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Role   Role               `bson:"role" json:"role"`
	Name   string             `bson:"name" json:"name"`
	Email  string             `bson:"email" json:"email"`
	Phone  string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Avatar string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Bio    string             `bson:"bio,omitempty" json:"bio,omitempty"`

	Password          string    `bson:"password" json:"-"`
	PasswordChangedAt time.Time `bson:"passwordChangedAt" json:"-"`

	LoginAttempts int        `bson:"loginAttempts" json:"-"`
	LockUntil     *time.Time `bson:"lockUntil" json:"-"`

	RefreshToken string       `bson:"refreshToken,omitempty" json:"-"`
	LastActive   *time.Time   `bson:"lastActive,omitempty" json:"lastActive,omitempty"`
	LoginHistory []LoginEntry `bson:"loginHistory,omitempty" json:"-"`

	IsActive   bool       `bson:"isActive" json:"isActive"`
	IsVerified bool       `bson:"isVerified" json:"isVerified"`
	IsDeleted  bool       `bson:"isDeleted" json:"-"`
	DeletedAt  *time.Time `bson:"deletedAt,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// AccountView is the outward projection of an Account: no secret,
// session or lockout state.
type AccountView struct {
	ID         string     `json:"id"`
	Role       Role       `json:"role"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone,omitempty"`
	Avatar     string     `json:"avatar,omitempty"`
	Bio        string     `json:"bio,omitempty"`
	IsActive   bool       `json:"isActive"`
	IsVerified bool       `json:"isVerified"`
	LastActive *time.Time `json:"lastActive,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (a *Account) View() AccountView {
	return AccountView{
		ID:         a.ID.Hex(),
		Role:       a.Role,
		Name:       a.Name,
		Email:      a.Email,
		Phone:      a.Phone,
		Avatar:     a.Avatar,
		Bio:        a.Bio,
		IsActive:   a.IsActive,
		IsVerified: a.IsVerified,
		LastActive: a.LastActive,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}
