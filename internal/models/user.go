package models

import "time"

type User struct {
	ID           string     `bson:"_id" json:"id"`
	Email        string     `bson:"email" json:"email"`
	FullName     string     `bson:"fullName" json:"fullName"`
	Role         Role       `bson:"role" json:"role"`
	ClientID     string     `bson:"clientId,omitempty" json:"clientId,omitempty"`
	IsActive     bool       `bson:"isActive" json:"isActive"`
	PasswordHash string     `bson:"passwordHash,omitempty" json:"-"` // never returned
	CpfCnpj      string     `bson:"cpfCnpj,omitempty" json:"cpfCnpj,omitempty"`
	Address      string     `bson:"address,omitempty" json:"address,omitempty"`
	Phone        string     `bson:"phone,omitempty" json:"phone,omitempty"`
	LastLoginAt  *time.Time `bson:"lastLoginAt,omitempty" json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// UserPatch carries only the fields a caller wants to change. A nil field is
// left untouched by the store.
type UserPatch struct {
	FullName     *string    `bson:"fullName,omitempty" json:"fullName,omitempty"`
	Email        *string    `bson:"email,omitempty" json:"email,omitempty"`
	Role         *Role      `bson:"role,omitempty" json:"role,omitempty"`
	ClientID     *string    `bson:"clientId,omitempty" json:"clientId,omitempty"`
	IsActive     *bool      `bson:"isActive,omitempty" json:"isActive,omitempty"`
	PasswordHash *string    `bson:"passwordHash,omitempty" json:"-"`
	CpfCnpj      *string    `bson:"cpfCnpj,omitempty" json:"cpfCnpj,omitempty"`
	Address      *string    `bson:"address,omitempty" json:"address,omitempty"`
	Phone        *string    `bson:"phone,omitempty" json:"phone,omitempty"`
	LastLoginAt  *time.Time `bson:"lastLoginAt,omitempty" json:"-"`
}

// Empty reports whether the patch changes nothing.
func (p *UserPatch) Empty() bool {
	return p.FullName == nil && p.Email == nil && p.Role == nil && p.ClientID == nil &&
		p.IsActive == nil && p.PasswordHash == nil && p.CpfCnpj == nil && p.Address == nil &&
		p.Phone == nil && p.LastLoginAt == nil
}

// Apply merges the patch into u.
func (p *UserPatch) Apply(u *User) {
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.ClientID != nil {
		u.ClientID = *p.ClientID
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.CpfCnpj != nil {
		u.CpfCnpj = *p.CpfCnpj
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.LastLoginAt != nil {
		t := *p.LastLoginAt
		u.LastLoginAt = &t
	}
}
