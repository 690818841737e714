// Package scope decides which rows a caller may see.
//
// Every list and detail query runs through a Policy chosen from the caller's role:
//
//	policy := scope.For(user)
//	db.Scopes(policy.Scope(scope.Invoices)).Where("status = ?", "PENDING").Find(&invoices)
//
// The predicate a policy adds is ANDed with whatever filters follow it. Callers with
// no recognised role get a policy that matches nothing.
package scope

import (
	"database/sql"

	"elms-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Resource names a table whose rows are subject to scoping.
type Resource string

const (
	Properties      Resource = "properties"
	Units           Resource = "units"
	Tenancies       Resource = "tenancies"
	TenantDocuments Resource = "tenant_documents"
	Invoices        Resource = "invoices"
	Payments        Resource = "payments"
	Receipts        Resource = "receipts"
	Complaints      Resource = "complaints"
	ComplaintImages Resource = "complaint_images"
	Users           Resource = "users"
)

// ScopeFunc is a GORM scope function
type ScopeFunc func(*gorm.DB) *gorm.DB

// Policy produces the row filter for one caller.
type Policy interface {
	Scope(resource Resource) ScopeFunc
	Name() string
}

// For selects the policy for user. It must be called per request.
func For(user *models.User) Policy {
	switch {
	case user == nil || user.ID == uuid.Nil || !user.IsActive:
		return denyPolicy{}
	case user.IsLandlord():
		return predicatePolicy{name: "landlord", userID: user.ID, predicates: landlordPredicates}
	case user.IsCaretaker():
		return caretakerPolicy{userID: user.ID, staff: user.IsAdministrator()}
	case user.IsAdministrator():
		return staffPolicy{}
	case user.IsTenant():
		return predicatePolicy{name: "tenant", userID: user.ID, predicates: tenantPredicates}
	default:
		return denyPolicy{}
	}
}

// Subqueries tracing a row back to the caller. @user is bound to the caller's id.
const (
	ownedProperties = `SELECT properties.id FROM properties WHERE properties.owner_id = @user`
	ownedUnits      = `SELECT units.id FROM units JOIN properties ON properties.id = units.property_id WHERE properties.owner_id = @user`
	ownedTenancies  = `SELECT tenancies.id FROM tenancies JOIN units ON units.id = tenancies.unit_id JOIN properties ON properties.id = units.property_id WHERE properties.owner_id = @user`
	ownTenancies    = `SELECT tenancies.id FROM tenancies WHERE tenancies.user_id = @user`
)

var landlordPredicates = map[Resource]string{
	Properties:      `properties.owner_id = @user`,
	Units:           `units.property_id IN (` + ownedProperties + `)`,
	Tenancies:       `tenancies.unit_id IN (` + ownedUnits + `)`,
	TenantDocuments: `tenant_documents.tenancy_id IN (` + ownedTenancies + `)`,
	Invoices:        `invoices.tenancy_id IN (` + ownedTenancies + `)`,
	Payments:        `payments.tenancy_id IN (` + ownedTenancies + `)`,
	Receipts:        `receipts.payment_id IN (SELECT payments.id FROM payments WHERE payments.tenancy_id IN (` + ownedTenancies + `))`,
	Complaints:      `complaints.unit_id IN (` + ownedUnits + `)`,
	ComplaintImages: `complaint_images.complaint_id IN (SELECT complaints.id FROM complaints WHERE complaints.unit_id IN (` + ownedUnits + `))`,
	Users: `(users.id = @user OR users.role = 'CARETAKER' OR users.id IN (SELECT tenancies.user_id FROM tenancies JOIN units ON units.id = tenancies.unit_id JOIN properties ON properties.id = units.property_id WHERE properties.owner_id = @user))`,
}

var tenantPredicates = map[Resource]string{
	Properties:      `properties.id IN (SELECT units.property_id FROM units JOIN tenancies ON tenancies.unit_id = units.id WHERE tenancies.user_id = @user)`,
	Units:           `units.id IN (SELECT tenancies.unit_id FROM tenancies WHERE tenancies.user_id = @user)`,
	Tenancies:       `tenancies.user_id = @user`,
	TenantDocuments: `tenant_documents.tenancy_id IN (` + ownTenancies + `)`,
	Invoices:        `invoices.tenancy_id IN (` + ownTenancies + `)`,
	Payments:        `payments.tenancy_id IN (` + ownTenancies + `)`,
	Receipts:        `receipts.payment_id IN (SELECT payments.id FROM payments WHERE payments.tenancy_id IN (` + ownTenancies + `))`,
	Complaints:      `complaints.tenancy_id IN (` + ownTenancies + `)`,
	ComplaintImages: `complaint_images.complaint_id IN (SELECT complaints.id FROM complaints WHERE complaints.tenancy_id IN (` + ownTenancies + `))`,
	Users:           `users.id = @user`,
}

// predicatePolicy restricts each resource with a fixed predicate on the caller's id.
// Resources missing from the map match nothing.
type predicatePolicy struct {
	name       string
	userID     uuid.UUID
	predicates map[Resource]string
}

func (p predicatePolicy) Name() string { return p.name }

func (p predicatePolicy) Scope(resource Resource) ScopeFunc {
	predicate, ok := p.predicates[resource]
	if !ok {
		return denyAll
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(predicate, sql.Named("user", p.userID))
	}
}

// caretakerPolicy sees the complaints assigned to it. Caretakers flagged as staff
// keep unrestricted access to everything else.
type caretakerPolicy struct {
	userID uuid.UUID
	staff  bool
}

func (p caretakerPolicy) Name() string { return "caretaker" }

func (p caretakerPolicy) Scope(resource Resource) ScopeFunc {
	switch resource {
	case Complaints:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("complaints.assigned_to_id = ?", p.userID)
		}
	case ComplaintImages:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("complaint_images.complaint_id IN (SELECT complaints.id FROM complaints WHERE complaints.assigned_to_id = ?)", p.userID)
		}
	}
	if p.staff {
		return unrestricted
	}
	if resource == Users {
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("users.id = ?", p.userID)
		}
	}
	return denyAll
}

type staffPolicy struct{}

func (staffPolicy) Name() string                   { return "staff" }
func (staffPolicy) Scope(resource Resource) ScopeFunc { return unrestricted }

type denyPolicy struct{}

func (denyPolicy) Name() string                   { return "deny" }
func (denyPolicy) Scope(resource Resource) ScopeFunc { return denyAll }

func unrestricted(db *gorm.DB) *gorm.DB { return db }

// denyAll returns an empty result set rather than an error.
func denyAll(db *gorm.DB) *gorm.DB { return db.Where("1 = 0") }
