package shared

// Permission codes form a flat vocabulary shared verbatim with the front
// ends. Codes follow <resource>.<action>.<scope> where scope is "own"
// (the caller's resources) or "all" (every resource of the type); binary
// capabilities carry no scope suffix. Codes are stable: renaming a code
// silently revokes every grant that references it.
const (
	PermAgreementCreate   = "agreement.create"
	PermAgreementViewOwn  = "agreement.view.own"
	PermAgreementViewAll  = "agreement.view.all"
	PermAgreementEditOwn  = "agreement.edit.own"
	PermAgreementEditAll  = "agreement.edit.all"
	PermAgreementDelete   = "agreement.delete"
	PermAgreementNotarize = "agreement.notarize"

	PermCustomerViewOwn = "customer.view.own"
	PermCustomerViewAll = "customer.view.all"
	PermCustomerManage  = "customer.manage"

	PermPropertyView   = "property.view"
	PermPropertyManage = "property.manage"

	PermSocietyView   = "society.view"
	PermSocietyManage = "society.manage"

	PermTemplateView   = "template.view"
	PermTemplateManage = "template.manage"

	PermUserView   = "user.view"
	PermUserManage = "user.manage"

	PermRoleView   = "role.view"
	PermRoleManage = "role.manage"
	PermRoleAssign = "role.assign"

	PermPermissionView = "permission.view"

	PermSystemAdmin = "system.admin"
)

// PermissionDescriptions maps every known code to its human description.
// The seed step provisions the permissions table from this registry.
var PermissionDescriptions = map[string]string{
	PermAgreementCreate:   "Create rental agreements",
	PermAgreementViewOwn:  "View own rental agreements",
	PermAgreementViewAll:  "View all rental agreements",
	PermAgreementEditOwn:  "Edit own rental agreements",
	PermAgreementEditAll:  "Edit all rental agreements",
	PermAgreementDelete:   "Delete rental agreements",
	PermAgreementNotarize: "Mark rental agreements as notarized",
	PermCustomerViewOwn:   "View own customer profile",
	PermCustomerViewAll:   "View all customers",
	PermCustomerManage:    "Create and edit customers",
	PermPropertyView:      "View properties",
	PermPropertyManage:    "Create and edit properties",
	PermSocietyView:       "View societies",
	PermSocietyManage:     "Create and edit societies",
	PermTemplateView:      "View agreement templates",
	PermTemplateManage:    "Create and edit agreement templates",
	PermUserView:          "View admin users",
	PermUserManage:        "Create and edit admin users",
	PermRoleView:          "View roles",
	PermRoleManage:        "Create and edit custom roles",
	PermRoleAssign:        "Assign roles to users and customers",
	PermPermissionView:    "View the permission catalogue",
	PermSystemAdmin:       "Full system administration",
}

// AllPermissions returns every known permission code.
func AllPermissions() []string {
	codes := make([]string, 0, len(PermissionDescriptions))
	for code := range PermissionDescriptions {
		codes = append(codes, code)
	}
	return codes
}
