// Package role is the closed set of user types. Authorization code switches
// over these values exhaustively instead of comparing free-form strings.
package role

import "fmt"

type Role string

const (
	Customer   Role = "customer"
	StoreOwner Role = "store_owner"
	Driver     Role = "driver"
	Admin      Role = "admin"
)

// All lists every role in a stable order.
var All = []Role{Customer, StoreOwner, Driver, Admin}

func Parse(s string) (Role, error) {
	switch r := Role(s); r {
	case Customer, StoreOwner, Driver, Admin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) Valid() bool {
	_, err := Parse(string(r))
	return err == nil
}

func (r Role) String() string { return string(r) }

// CanUpgradeTo reports whether an automatic type change from r to next is
// allowed. Upgrades only ever start from Customer; nothing downgrades.
func (r Role) CanUpgradeTo(next Role) bool {
	switch r {
	case Customer:
		return next == StoreOwner || next == Driver
	case StoreOwner, Driver, Admin:
		return false
	}
	return false
}
