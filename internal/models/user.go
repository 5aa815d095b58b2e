package models

import "time"

type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// IsStaff reports whether the role may mutate the catalog and reservations.
func (r Role) IsStaff() bool { return r == RoleAdmin || r == RoleSuperAdmin }

// LoyaltyRedemption is the only amount by which loyalty points ever decrease.
const LoyaltyRedemption = 100

type User struct {
	ID                 string     `json:"id" bson:"_id"`
	Username           string     `json:"username" bson:"username"`
	Email              string     `json:"email" bson:"email"`
	PasswordHash       string     `json:"-" bson:"password"`
	Role               Role       `json:"role" bson:"role"`
	FirstName          string     `json:"firstName,omitempty" bson:"firstName,omitempty"`
	LastName           string     `json:"lastName,omitempty" bson:"lastName,omitempty"`
	PhoneNumber        string     `json:"phoneNumber,omitempty" bson:"phoneNumber,omitempty"`
	IsActive           bool       `json:"isActive" bson:"isActive"`
	LoyaltyPoints      int        `json:"loyaltyPoints" bson:"loyaltyPoints"`
	TwoFactorSecret    string     `json:"-" bson:"twoFactorSecret,omitempty"`
	IsTwoFactorEnabled bool       `json:"isTwoFactorEnabled" bson:"isTwoFactorEnabled"`
	CreatedAt          time.Time  `json:"createdAt" bson:"createdAt"`
	LastLogin          *time.Time `json:"lastLogin,omitempty" bson:"lastLogin,omitempty"`
}
