package models

type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
)

// Principal is the authenticated caller. SubjectID is a customer id or a vendor id
// depending on Role.
type Principal struct {
	SubjectID uint `json:"sub"`
	Role      Role `json:"role"`
}

func (p Principal) IsCustomer() bool { return p.Role == RoleCustomer && p.SubjectID != 0 }
func (p Principal) IsVendor() bool   { return p.Role == RoleVendor && p.SubjectID != 0 }
