package models

import "time"

type Client struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Email     string    `bson:"email,omitempty" json:"email,omitempty"`
	Phone     string    `bson:"phone,omitempty" json:"phone,omitempty"`
	Company   string    `bson:"company,omitempty" json:"company,omitempty"`
	Address   string    `bson:"address,omitempty" json:"address,omitempty"`
	CpfCnpj   string    `bson:"cpfCnpj,omitempty" json:"cpfCnpj,omitempty"`
	Notes     string    `bson:"notes,omitempty" json:"notes,omitempty"`
	IsActive  bool      `bson:"isActive" json:"isActive"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ClientSummary is the slice of a client embedded in project responses.
type ClientSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Company string `json:"company,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

func (c *Client) Summary() ClientSummary {
	return ClientSummary{ID: c.ID, Name: c.Name, Email: c.Email, Company: c.Company, Phone: c.Phone}
}

type ClientPatch struct {
	Name     *string `bson:"name,omitempty" json:"name,omitempty"`
	Email    *string `bson:"email,omitempty" json:"email,omitempty"`
	Phone    *string `bson:"phone,omitempty" json:"phone,omitempty"`
	Company  *string `bson:"company,omitempty" json:"company,omitempty"`
	Address  *string `bson:"address,omitempty" json:"address,omitempty"`
	CpfCnpj  *string `bson:"cpfCnpj,omitempty" json:"cpfCnpj,omitempty"`
	Notes    *string `bson:"notes,omitempty" json:"notes,omitempty"`
	IsActive *bool   `bson:"isActive,omitempty" json:"isActive,omitempty"`
}

func (p *ClientPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.Company == nil &&
		p.Address == nil && p.CpfCnpj == nil && p.Notes == nil && p.IsActive == nil
}

func (p *ClientPatch) Apply(c *Client) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.Company != nil {
		c.Company = *p.Company
	}
	if p.Address != nil {
		c.Address = *p.Address
	}
	if p.CpfCnpj != nil {
		c.CpfCnpj = *p.CpfCnpj
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
	if p.IsActive != nil {
		c.IsActive = *p.IsActive
	}
}

// ClientStats counts clients by whether any project references them.
type ClientStats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}
